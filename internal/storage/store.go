// Package storage provides abstractions for client-side persistence.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been set or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// Store defines the key/value persistence used for tokens and client state.
// This abstraction allows swapping backends (SQLite, a JSON file, memory)
// without changing the stores built on top of it.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
