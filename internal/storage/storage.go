// Package storage holds synthesized audio in durable object storage.
package storage

import (
	"context"
	"errors"
)

// ErrAlreadyExists is returned by Put when an object is already stored
// at the path.  Writers race on first creation; the loser should fetch
// the existing object's URL instead of failing.
var ErrAlreadyExists = errors.New("object already exists")

// Store is create-only object storage.
type Store interface {
	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Put stores data at path and returns its durable URL.  It never
	// overwrites; an occupied path yields ErrAlreadyExists.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	// URL returns the durable URL for path.
	URL(ctx context.Context, path string) (string, error)
}
