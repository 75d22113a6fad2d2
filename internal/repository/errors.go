// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the lifecycle package to distinguish between different
// failure scenarios.  Missing rows are reported as sql.ErrNoRows.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as cancelling a reservation that has
// already ended. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrInvalidWindow is returned when a reservation would end at or
// before its start.
var ErrInvalidWindow = errors.New("end time must be after start time")

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
