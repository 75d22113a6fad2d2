package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/playzone-reservation/internal/logging"
	"github.com/iliyamo/playzone-reservation/internal/metrics"
	"github.com/iliyamo/playzone-reservation/internal/model"
)

// Outcome is the typed result of GuardedEnd.
type Outcome int

const (
	// OutcomeEnded: this call moved the reservation to ended.
	OutcomeEnded Outcome = iota + 1
	// OutcomeAlreadyTerminal: the reservation was already ended or
	// cancelled; nothing changed.
	OutcomeAlreadyTerminal
	// OutcomeNotTimedOut: the end time is still in the future.
	OutcomeNotTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEnded:
		return "ended"
	case OutcomeAlreadyTerminal:
		return "already_terminal"
	case OutcomeNotTimedOut:
		return "not_timed_out"
	}
	return "unknown"
}

// Succeeded reports whether the caller may proceed as if the reservation
// is ended.
func (o Outcome) Succeeded() bool {
	return o == OutcomeEnded || o == OutcomeAlreadyTerminal
}

// Err maps the outcome onto the package sentinels; only
// OutcomeNotTimedOut has one.
func (o Outcome) Err() error {
	if o == OutcomeNotTimedOut {
		return ErrNotTimedOut
	}
	return nil
}

// Store is the persistence the state machine needs.  Every method must
// ignore soft-deleted rows.
type Store interface {
	AdvanceDue(ctx context.Context, now time.Time) (int64, error)
	EndIfDue(ctx context.Context, id uint64, now time.Time) (int64, error)
	Cancel(ctx context.Context, id, actorID uint64, now time.Time) (int64, error)
	StatusOf(ctx context.Context, id uint64) (model.ReservationStatus, time.Time, error)
}

// EndedPublisher is notified after this process performs an end
// transition.  Publishing is best effort.
type EndedPublisher interface {
	PublishReservationEnded(ctx context.Context, reservationID uint64, endedAt time.Time) error
}

// Machine applies lifecycle transitions against a Store.
type Machine struct {
	store     Store
	publisher EndedPublisher
}

// New returns a Machine over store.  publisher may be nil.
func New(store Store, publisher EndedPublisher) *Machine {
	return &Machine{store: store, publisher: publisher}
}

// BulkAdvanceDue starts every live reservation with start time at or
// before now and returns how many rows changed.
func (m *Machine) BulkAdvanceDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := m.store.AdvanceDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%w: advance due: %v", ErrStoreUnavailable, err)
	}
	if n > 0 {
		metrics.ReservationsAutoStarted.Add(float64(n))
		logging.FromContext(ctx).WithField("count", n).Info("reservations auto-started")
	}
	return n, nil
}

// GuardedEnd ends reservation id if its end time is at or before now.
//
// A missing or soft-deleted reservation yields ErrNotFound.  Every other
// expected case is reported through the Outcome with a nil error; a
// non-nil error other than ErrNotFound wraps ErrStoreUnavailable.
func (m *Machine) GuardedEnd(ctx context.Context, id uint64, now time.Time) (Outcome, error) {
	log := logging.FromContext(ctx).WithField("reservation_id", id)

	n, err := m.store.EndIfDue(ctx, id, now)
	if err != nil {
		return 0, fmt.Errorf("%w: end reservation %d: %v", ErrStoreUnavailable, id, err)
	}
	if n == 1 {
		metrics.ReservationsEnded.Inc()
		log.Info("reservation ended")
		m.publishEnded(ctx, log, id, now)
		return OutcomeEnded, nil
	}

	// Zero rows: classify without writing.
	status, end, err := m.store.StatusOf(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read reservation %d: %v", ErrStoreUnavailable, id, err)
	}
	if status.IsTerminal() {
		return OutcomeAlreadyTerminal, nil
	}
	if end.After(now) {
		return OutcomeNotTimedOut, nil
	}
	// Live and due, yet the conditional update matched nothing: a
	// concurrent writer touched the row between the two statements.  Let
	// the next tick decide.
	log.WithField("status", status).Warn("end transition lost a race; deferring")
	return OutcomeNotTimedOut, nil
}

// Cancel moves a live reservation to cancelled and soft-deletes it on
// behalf of actorID.
func (m *Machine) Cancel(ctx context.Context, id, actorID uint64, now time.Time) error {
	n, err := m.store.Cancel(ctx, id, actorID, now)
	if err != nil {
		return fmt.Errorf("%w: cancel reservation %d: %v", ErrStoreUnavailable, id, err)
	}
	if n == 1 {
		logging.FromContext(ctx).WithFields(logrus.Fields{"reservation_id": id, "actor_id": actorID}).Info("reservation cancelled")
		return nil
	}
	_, _, err = m.store.StatusOf(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: read reservation %d: %v", ErrStoreUnavailable, id, err)
	}
	return ErrConflict
}

func (m *Machine) publishEnded(ctx context.Context, log *logrus.Entry, id uint64, at time.Time) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishReservationEnded(ctx, id, at); err != nil {
		log.WithError(err).Warn("publish reservation.ended failed")
	}
}
