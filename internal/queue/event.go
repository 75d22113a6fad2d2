// Package queue defines the broker payloads and the consumer that keeps
// an append-only announcement log.
package queue

const (
	ReservationEndedQueue   = "reservation.ended"
	AnnouncementPlayedQueue = "announcement.played"
)

// ReservationEndedEvent is published when the guarded end transition
// moves a reservation to ended.
type ReservationEndedEvent struct {
	EventID       string `json:"event_id"`
	ReservationID uint64 `json:"reservation_id"`
	EndedAt       string `json:"ended_at"`
}

// AnnouncementPlayedEvent is published by the announcer after both
// locales have played.
type AnnouncementPlayedEvent struct {
	EventID       string            `json:"event_id"`
	ReservationID uint64            `json:"reservation_id"`
	CustomerName  string            `json:"customer_name"`
	Texts         map[string]string `json:"texts"`
	PlayedAt      string            `json:"played_at"`
}
