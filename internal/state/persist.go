// Package state holds the client's session and UI preferences. Each store
// keeps its full state in memory and persists a subset of it through a
// storage.Store under a fixed key.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmynk/travelboard/internal/storage"
)

// envelope is the persisted record shape: {"state": {...}, "version": 0}.
type envelope[T any] struct {
	State   T   `json:"state"`
	Version int `json:"version"`
}

// load reads the persisted state under key into v. It reports false when
// nothing was persisted yet.
func load[T any](ctx context.Context, backend storage.Store, key string, v *T) (bool, error) {
	if backend == nil {
		return false, nil
	}
	data, err := backend.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	*v = env.State
	return true, nil
}

func save[T any](ctx context.Context, backend storage.Store, key string, v T) error {
	if backend == nil {
		return nil
	}
	data, err := json.Marshal(envelope[T]{State: v})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := backend.Set(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
