package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/playzone-reservation/internal/model"
)

// ReservationRepo provides persistence for play-area reservations.  All
// timestamp columns are stored in UTC and every query that drives the
// lifecycle ignores soft-deleted rows (deleted_at IS NOT NULL).
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span several repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `r.id, r.code, r.customer_id, COALESCE(c.display_name, ''), r.playtime_option_id,
       r.start_time, r.end_time, r.status, r.total_price_cents, r.total_paid_cents,
       r.created_by, r.created_at, r.updated_at`

// AdvanceDue moves every live reservation whose start time has passed from
// reserved to started in one statement and returns the number of rows
// changed.  Running it concurrently is harmless: the predicate only
// matches rows that are still reserved.
func (r *ReservationRepo) AdvanceDue(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE reservations
               SET status = 'started', updated_at = ?
               WHERE status = 'reserved' AND deleted_at IS NULL AND start_time <= ?`
	res, err := r.db.ExecContext(ctx, q, now.UTC(), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EndIfDue ends a single live reservation whose end time is at or before
// now.  The guard and the write are one statement; the affected-row count
// is 1 when this call performed the transition and 0 otherwise.
func (r *ReservationRepo) EndIfDue(ctx context.Context, id uint64, now time.Time) (int64, error) {
	const q = `UPDATE reservations
               SET status = 'ended', updated_at = ?
               WHERE id = ? AND deleted_at IS NULL
                 AND status IN ('reserved', 'started')
                 AND end_time <= ?`
	res, err := r.db.ExecContext(ctx, q, now.UTC(), id, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Cancel marks a live reservation as cancelled and soft-deletes it in one
// statement.  It returns the number of rows changed.
func (r *ReservationRepo) Cancel(ctx context.Context, id, actorID uint64, now time.Time) (int64, error) {
	const q = `UPDATE reservations
               SET status = 'cancelled', updated_at = ?, deleted_at = ?, deleted_by = ?
               WHERE id = ? AND deleted_at IS NULL AND status IN ('reserved', 'started')`
	res, err := r.db.ExecContext(ctx, q, now.UTC(), now.UTC(), actorID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StatusOf returns the current status and end time of a live reservation.
// Soft-deleted and missing rows both yield sql.ErrNoRows.
func (r *ReservationRepo) StatusOf(ctx context.Context, id uint64) (model.ReservationStatus, time.Time, error) {
	const q = `SELECT status, end_time FROM reservations WHERE id = ? AND deleted_at IS NULL`
	var status string
	var end time.Time
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&status, &end); err != nil {
		return "", time.Time{}, err
	}
	return model.ReservationStatus(status), end.UTC(), nil
}

// GetByID loads a live reservation together with its customer's display
// name.  It returns sql.ErrNoRows when the reservation does not exist or
// has been soft-deleted.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
          FROM reservations r
          LEFT JOIN customers c ON c.id = r.customer_id
          WHERE r.id = ? AND r.deleted_at IS NULL`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListActive returns every live reservation that is not in a terminal
// state, ordered by end time so the earliest pickups come first.  This is
// the snapshot the front-desk announcer polls.
func (r *ReservationRepo) ListActive(ctx context.Context) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
          FROM reservations r
          LEFT JOIN customers c ON c.id = r.customer_id
          WHERE r.deleted_at IS NULL AND r.status IN ('reserved', 'started')
          ORDER BY r.end_time ASC, r.id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID.  The caller must commit or
// roll back.  The window must be non-empty.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	if !res.EndTime.After(res.StartTime) {
		return ErrInvalidWindow
	}
	if res.TotalPaidCents > res.TotalPriceCents {
		return ErrConflict
	}
	const q = `INSERT INTO reservations
               (code, customer_id, playtime_option_id, start_time, end_time, status,
                total_price_cents, total_paid_cents, created_by)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.Code, res.CustomerID, res.PlaytimeOptionID,
		res.StartTime.UTC(), res.EndTime.UTC(), string(res.Status),
		res.TotalPriceCents, res.TotalPaidCents, res.CreatedBy,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var status string
	if err := s.Scan(
		&res.ID, &res.Code, &res.CustomerID, &res.CustomerName, &res.PlaytimeOptionID,
		&res.StartTime, &res.EndTime, &status, &res.TotalPriceCents, &res.TotalPaidCents,
		&res.CreatedBy, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
	return &res, nil
}
