// Package lifecycle advances play-area reservations through
// reserved → started → ended without a human in the loop.
//
// Two transitions are automatic.  BulkAdvanceDue starts every reservation
// whose start time has passed in one set-based statement.  GuardedEnd ends
// a single reservation once its end time has passed; the guard and the
// write are one conditional UPDATE, so concurrent callers cannot both
// perform the transition.  Cancellation is the only staff-driven
// transition handled here.  ended and cancelled are terminal.
package lifecycle
