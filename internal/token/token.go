// Package token keeps the access and refresh tokens of the current session.
package token

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/travelboard/internal/auth"
	"github.com/mmynk/travelboard/internal/storage"
)

// Storage keys, shared with the browser client's localStorage layout.
const (
	AccessKey  = "access_token"
	RefreshKey = "refresh_token"
)

// EnvOverride names the variable that replaces the stored access token.
const EnvOverride = "TRAVELBOARD_TOKEN"

// Store reads and writes tokens through a storage adapter. A nil adapter
// makes every getter return "" and every setter a no-op.
type Store struct {
	mu      sync.Mutex
	backend storage.Store
	logger  *slog.Logger
	getenv  func(string) string
}

// New returns a token store backed by backend, which may be nil.
func New(backend storage.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger, getenv: os.Getenv}
}

// AccessToken returns the current access token or "".
func (s *Store) AccessToken(ctx context.Context) string {
	if env := strings.TrimSpace(s.getenv(EnvOverride)); env != "" {
		return stripBearer(env)
	}
	return s.get(ctx, AccessKey)
}

// RefreshToken returns the current refresh token or "".
func (s *Store) RefreshToken(ctx context.Context) string {
	return s.get(ctx, RefreshKey)
}

// SetTokens stores both tokens. Last write wins.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if s.backend == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Set(ctx, AccessKey, []byte(stripBearer(access))); err != nil {
		return err
	}
	return s.backend.Set(ctx, RefreshKey, []byte(refresh))
}

// Clear removes both tokens.
func (s *Store) Clear(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(
		s.backend.Delete(ctx, AccessKey),
		s.backend.Delete(ctx, RefreshKey),
	)
}

// FromEnv reports whether the access token comes from the environment.
func (s *Store) FromEnv() bool {
	return strings.TrimSpace(s.getenv(EnvOverride)) != ""
}

// Expiry returns the exp claim of the access token. The zero time means
// there is no token or it carries no expiry.
func (s *Store) Expiry(ctx context.Context) (time.Time, error) {
	tok := s.AccessToken(ctx)
	if tok == "" {
		return time.Time{}, nil
	}
	return auth.Expiry(tok)
}

func (s *Store) get(ctx context.Context, key string) string {
	if s.backend == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Token read failed", "key", key, "error", err)
		}
		return ""
	}
	return string(v)
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
