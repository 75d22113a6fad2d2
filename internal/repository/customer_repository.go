package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// CustomerRepo provides the minimal customer operations check-in needs.
type CustomerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// CreateTx inserts a customer inside tx and returns its ID.
func (r *CustomerRepo) CreateTx(ctx context.Context, tx *sql.Tx, displayName string, phone *string) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO customers (display_name, phone) VALUES (?, ?)`,
		strings.TrimSpace(displayName), phone)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ExistsTx reports whether a live customer with id exists.
func (r *CustomerRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE id = ? AND deleted_at IS NULL`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
