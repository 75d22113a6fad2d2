package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/playzone-reservation/internal/model"
	"github.com/iliyamo/playzone-reservation/internal/repository"
)

const (
	endUpdate    = `UPDATE reservations\s+SET status = 'ended'`
	statusSelect = `SELECT status, end_time FROM reservations WHERE id = \? AND deleted_at IS NULL`
)

func newMockMachine(t *testing.T) (*Machine, sqlmock.Sqlmock, *recordingPublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	pub := &recordingPublisher{}
	return New(repository.NewReservationRepo(db), pub), mock, pub
}

type recordingPublisher struct {
	mu  sync.Mutex
	ids []uint64
}

func (p *recordingPublisher) PublishReservationEnded(_ context.Context, id uint64, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return nil
}

func TestGuardedEnd_PickupScenario(t *testing.T) {
	m, mock, pub := newMockMachine(t)
	ctx := context.Background()
	T := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)

	// T-1s: not yet.
	mock.ExpectExec(endUpdate).WithArgs(sqlmock.AnyArg(), uint64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(statusSelect).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "end_time"}).AddRow("started", T))

	out, err := m.GuardedEnd(ctx, 1, T.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotTimedOut, out)
	assert.ErrorIs(t, out.Err(), ErrNotTimedOut)

	// T+1s: ends.
	mock.ExpectExec(endUpdate).WithArgs(sqlmock.AnyArg(), uint64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err = m.GuardedEnd(ctx, 1, T.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, OutcomeEnded, out)

	// T+2s: repeat is a no-op success.
	mock.ExpectExec(endUpdate).WithArgs(sqlmock.AnyArg(), uint64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(statusSelect).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "end_time"}).AddRow("ended", T))

	out, err = m.GuardedEnd(ctx, 1, T.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyTerminal, out)
	assert.True(t, out.Succeeded())

	assert.Equal(t, []uint64{1}, pub.ids, "only the real transition is published")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardedEnd_NotFound(t *testing.T) {
	m, mock, _ := newMockMachine(t)

	mock.ExpectExec(endUpdate).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(statusSelect).WithArgs(uint64(99)).WillReturnError(sql.ErrNoRows)

	_, err := m.GuardedEnd(context.Background(), 99, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardedEnd_StoreUnavailable(t *testing.T) {
	m, mock, _ := newMockMachine(t)

	mock.ExpectExec(endUpdate).WillReturnError(errors.New("connection refused"))

	_, err := m.GuardedEnd(context.Background(), 5, time.Now())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestBulkAdvanceDue_Statement(t *testing.T) {
	m, mock, _ := newMockMachine(t)

	mock.ExpectExec(`UPDATE reservations\s+SET status = 'started'.*WHERE status = 'reserved' AND deleted_at IS NULL AND start_time <= \?`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := m.BulkAdvanceDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel(t *testing.T) {
	t.Run("live reservation", func(t *testing.T) {
		m, mock, _ := newMockMachine(t)
		mock.ExpectExec(`SET status = 'cancelled'`).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, m.Cancel(context.Background(), 4, 2, time.Now()))
	})
	t.Run("already ended", func(t *testing.T) {
		m, mock, _ := newMockMachine(t)
		mock.ExpectExec(`SET status = 'cancelled'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(statusSelect).
			WillReturnRows(sqlmock.NewRows([]string{"status", "end_time"}).AddRow("ended", time.Now()))
		assert.ErrorIs(t, m.Cancel(context.Background(), 4, 2, time.Now()), ErrConflict)
	})
	t.Run("missing", func(t *testing.T) {
		m, mock, _ := newMockMachine(t)
		mock.ExpectExec(`SET status = 'cancelled'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(statusSelect).WillReturnError(sql.ErrNoRows)
		assert.ErrorIs(t, m.Cancel(context.Background(), 4, 2, time.Now()), ErrNotFound)
	})
}

// memStore applies the same predicates as the SQL statements, each under
// one lock, so it behaves like single-statement updates.
type memStore struct {
	mu   sync.Mutex
	rows map[uint64]*model.Reservation
}

func (s *memStore) AdvanceDue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.rows {
		if r.DeletedAt == nil && r.Status == model.StatusReserved && !r.StartTime.After(now) {
			r.Status = model.StatusStarted
			n++
		}
	}
	return n, nil
}

func (s *memStore) EndIfDue(_ context.Context, id uint64, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.DeletedAt != nil || r.Status.IsTerminal() || r.EndTime.After(now) {
		return 0, nil
	}
	r.Status = model.StatusEnded
	return 1, nil
}

func (s *memStore) Cancel(_ context.Context, id, _ uint64, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.DeletedAt != nil || r.Status.IsTerminal() {
		return 0, nil
	}
	r.Status = model.StatusCancelled
	r.DeletedAt = &now
	return 1, nil
}

func (s *memStore) StatusOf(_ context.Context, id uint64) (model.ReservationStatus, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.DeletedAt != nil {
		return "", time.Time{}, sql.ErrNoRows
	}
	return r.Status, r.EndTime, nil
}

func TestGuardedEnd_ConcurrentCallersTransitionOnce(t *testing.T) {
	end := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	store := &memStore{rows: map[uint64]*model.Reservation{
		7: {ID: 7, Status: model.StatusStarted, StartTime: end.Add(-time.Hour), EndTime: end},
	}}
	pub := &recordingPublisher{}
	m := New(store, pub)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 16)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := m.GuardedEnd(context.Background(), 7, end.Add(time.Second))
			assert.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	ended := 0
	for _, o := range outcomes {
		assert.True(t, o.Succeeded())
		if o == OutcomeEnded {
			ended++
		}
	}
	assert.Equal(t, 1, ended)
	assert.Len(t, pub.ids, 1)
}

func TestGuardedEnd_NeverEndsEarly(t *testing.T) {
	end := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	store := &memStore{rows: map[uint64]*model.Reservation{
		1: {ID: 1, Status: model.StatusReserved, StartTime: end.Add(-time.Hour), EndTime: end},
		2: {ID: 2, Status: model.StatusStarted, StartTime: end.Add(-time.Hour), EndTime: end},
	}}
	m := New(store, nil)

	for _, id := range []uint64{1, 2} {
		for _, before := range []time.Duration{time.Hour, time.Minute, time.Millisecond} {
			out, err := m.GuardedEnd(context.Background(), id, end.Add(-before))
			require.NoError(t, err)
			assert.Equal(t, OutcomeNotTimedOut, out)
		}
	}
	assert.Equal(t, model.StatusReserved, store.rows[1].Status)
	assert.Equal(t, model.StatusStarted, store.rows[2].Status)
}

func TestBulkAdvanceDue_LeavesOnlyFutureReserved(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	deleted := now.Add(-time.Hour)
	store := &memStore{rows: map[uint64]*model.Reservation{
		1: {ID: 1, Status: model.StatusReserved, StartTime: now.Add(-time.Minute), EndTime: now.Add(time.Hour)},
		2: {ID: 2, Status: model.StatusReserved, StartTime: now, EndTime: now.Add(time.Hour)},
		3: {ID: 3, Status: model.StatusReserved, StartTime: now.Add(time.Minute), EndTime: now.Add(time.Hour)},
		4: {ID: 4, Status: model.StatusCancelled, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)},
		5: {ID: 5, Status: model.StatusReserved, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), DeletedAt: &deleted},
	}}
	m := New(store, nil)

	n, err := m.BulkAdvanceDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, r := range store.rows {
		if r.Status == model.StatusReserved && r.DeletedAt == nil {
			assert.True(t, r.StartTime.After(now), "reservation %d should have started", id)
		}
	}
	assert.Equal(t, model.StatusCancelled, store.rows[4].Status)
	assert.Equal(t, model.StatusReserved, store.rows[5].Status, "soft-deleted rows are ignored")

	// Re-running is a no-op.
	n, err = m.BulkAdvanceDue(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}
