package repository

import (
	"context"
	"database/sql"
	"errors"
)

// TTSCacheRepo stores the mapping from a synthesis cache key to the durable
// URL of its audio.  The table is append-only; the first writer of a key
// wins and later writers are ignored.
type TTSCacheRepo struct {
	db *sql.DB
}

// NewTTSCacheRepo returns a TTSCacheRepo bound to db.
func NewTTSCacheRepo(db *sql.DB) *TTSCacheRepo { return &TTSCacheRepo{db: db} }

// Lookup returns the URL stored under key.  The boolean is false when the
// key has never been written.
func (r *TTSCacheRepo) Lookup(ctx context.Context, key string) (string, bool, error) {
	var url string
	err := r.db.QueryRowContext(ctx, `SELECT url FROM tts_cache WHERE cache_key = ?`, key).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

// InsertIgnore records key → url unless the key already exists, in which
// case the call is a silent no-op.
func (r *TTSCacheRepo) InsertIgnore(ctx context.Context, key, url string) error {
	_, err := r.db.ExecContext(ctx, `INSERT IGNORE INTO tts_cache (cache_key, url) VALUES (?, ?)`, key, url)
	return err
}
