package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/playzone-reservation/internal/model"
)

// PlaytimeRepo provides access to the playtime_options catalog.
type PlaytimeRepo struct {
	db *sql.DB
}

func NewPlaytimeRepo(db *sql.DB) *PlaytimeRepo { return &PlaytimeRepo{db: db} }

// Create inserts a catalog entry and returns it with its generated ID.
func (r *PlaytimeRepo) Create(ctx context.Context, name string, minutes, priceCents uint32) (*model.PlaytimeOption, error) {
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO playtime_options (name, duration_minutes, price_cents) VALUES (?, ?, ?)`,
		name, minutes, priceCents)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.PlaytimeOption{ID: uint64(id), Name: name, DurationMinutes: minutes, PriceCents: priceCents}, nil
}

// GetByIDTx loads a non-deleted option inside tx.  Reading the option in
// the same transaction as the reservation insert keeps the price and
// duration snapshot consistent.
func (r *PlaytimeRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.PlaytimeOption, error) {
	var o model.PlaytimeOption
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, duration_minutes, price_cents, created_at
         FROM playtime_options WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&o.ID, &o.Name, &o.DurationMinutes, &o.PriceCents, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns all non-deleted options ordered by duration.
func (r *PlaytimeRepo) List(ctx context.Context) ([]model.PlaytimeOption, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, duration_minutes, price_cents, created_at
         FROM playtime_options WHERE deleted_at IS NULL
         ORDER BY duration_minutes, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PlaytimeOption, 0)
	for rows.Next() {
		var o model.PlaytimeOption
		if err := rows.Scan(&o.ID, &o.Name, &o.DurationMinutes, &o.PriceCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
