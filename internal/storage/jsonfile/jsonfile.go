// Package jsonfile implements storage.Store as a single JSON object on disk.
// Human-readable and portable; every write rewrites the whole file.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mmynk/travelboard/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store maps keys to raw JSON values inside one file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a Store backed by path. The file is created on first write.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) load() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(b) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return m, nil
}

func (s *Store) save(m map[string]json.RawMessage) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	// owner-only: the file holds bearer tokens
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	raw, ok := m[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	// Non-JSON values are stored as JSON strings.
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return []byte(str), nil
	}
	return []byte(raw), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if json.Valid(value) && len(value) > 0 && (value[0] == '{' || value[0] == '[') {
		m[key] = json.RawMessage(append([]byte(nil), value...))
	} else {
		encoded, err := json.Marshal(string(value))
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		m[key] = encoded
	}
	return s.save(m)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}

func (s *Store) Close() error { return nil }
