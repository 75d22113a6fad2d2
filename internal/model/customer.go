package model

import "time"

// Customer is the child (or guardian) a reservation belongs to.  The
// DisplayName is what gets substituted into pickup announcements.
type Customer struct {
	ID          uint64     `json:"id"`
	DisplayName string     `json:"display_name"`
	Phone       *string    `json:"phone,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
