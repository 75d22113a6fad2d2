package model

import "time"

// Staff roles.  ADMIN may manage the catalog and announcement templates;
// STAFF runs the front desk.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// User represents a staff account as stored in the `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – ADMIN or STAFF.
//	IsActive     – whether the account may log in.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
