package model

import "time"

// PlaytimeOption is a catalog entry describing a purchasable play session.
// Once a reservation references an option, the reservation keeps its own
// copy of price and duration, so later catalog edits do not affect it.
type PlaytimeOption struct {
	ID              uint64     `json:"id"`
	Name            string     `json:"name"`
	DurationMinutes uint32     `json:"duration_minutes"`
	PriceCents      uint32     `json:"price_cents"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// Duration returns the option's session length.
func (o PlaytimeOption) Duration() time.Duration {
	return time.Duration(o.DurationMinutes) * time.Minute
}
