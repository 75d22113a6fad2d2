package model

import "time"

// ReservationStatus enumerates the lifecycle states of a play-area
// reservation.  The zero value is not a valid status.
type ReservationStatus string

const (
	StatusReserved  ReservationStatus = "reserved"
	StatusStarted   ReservationStatus = "started"
	StatusEnded     ReservationStatus = "ended"
	StatusCancelled ReservationStatus = "cancelled"
)

// IsTerminal reports whether no automatic transition may leave s.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusReserved, StatusStarted, StatusEnded, StatusCancelled:
		return true
	}
	return false
}

// Reservation is a timed booking of the play area for one customer.
// TotalPriceCents and the StartTime/EndTime window are snapshots of the
// playtime option at check-in and are never recomputed from the catalog.
type Reservation struct {
	ID               uint64            `json:"id"`
	Code             string            `json:"code"`
	CustomerID       uint64            `json:"customer_id"`
	CustomerName     string            `json:"customer_name,omitempty"`
	PlaytimeOptionID uint64            `json:"playtime_option_id"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          time.Time         `json:"end_time"`
	Status           ReservationStatus `json:"status"`
	TotalPriceCents  uint32            `json:"total_price_cents"`
	TotalPaidCents   uint32            `json:"total_paid_cents"`
	CreatedBy        uint64            `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DeletedAt        *time.Time        `json:"deleted_at,omitempty"`
	DeletedBy        *uint64           `json:"deleted_by,omitempty"`
}

// Overdue reports whether the reservation is still live and its end time
// is at or before now.
func (r Reservation) Overdue(now time.Time) bool {
	return !r.Status.IsTerminal() && !r.EndTime.After(now)
}
