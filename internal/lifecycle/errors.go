package lifecycle

import "errors"

var (
	// ErrNotFound means the reservation does not exist or was soft-deleted.
	// Callers must not retry.
	ErrNotFound = errors.New("reservation not found")

	// ErrNotTimedOut means the reservation's end time has not been reached.
	// It is an expected outcome ("not yet"), never a failure.
	ErrNotTimedOut = errors.New("reservation has not timed out")

	// ErrStoreUnavailable wraps transient persistence failures.
	ErrStoreUnavailable = errors.New("reservation store unavailable")

	// ErrConflict means a staff transition was requested on a reservation
	// that is already terminal.
	ErrConflict = errors.New("reservation is already ended or cancelled")
)
