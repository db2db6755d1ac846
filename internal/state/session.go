package state

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/mmynk/travelboard/internal/models"
	"github.com/mmynk/travelboard/internal/storage"
)

// SessionKey is the storage key of the persisted session.
const SessionKey = "session-storage"

// User is the signed-in user as the session shows it.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// UserFrom converts an API user for display.
func UserFrom(u models.User) User {
	out := User{
		ID:    strconv.FormatInt(u.ID, 10),
		Email: u.Email,
		Name:  u.FullName(),
	}
	if !u.CreatedAt.IsZero() {
		out.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// SessionState is a snapshot of the session.
type SessionState struct {
	User            *User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
}

type persistedSession struct {
	User  *User   `json:"user"`
	Token *string `json:"token"`
}

// Session tracks who is signed in. Only the user and token are persisted;
// the flags are derived on rehydration.
type Session struct {
	mu      sync.Mutex
	state   SessionState
	backend storage.Store
	logger  *slog.Logger
}

// NewSession creates a session persisted through backend. It starts loading
// until Rehydrate runs.
func NewSession(backend storage.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		state:   SessionState{IsLoading: true},
		backend: backend,
		logger:  logger,
	}
}

// Rehydrate loads the persisted user and token. The session is
// authenticated only when both are present; loading ends either way.
func (s *Session) Rehydrate(ctx context.Context) {
	var p persistedSession
	_, err := load(ctx, s.backend, SessionKey, &p)
	if err != nil {
		s.logger.Warn("Failed to restore session", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = p.User
	s.state.Token = ""
	if p.Token != nil {
		s.state.Token = *p.Token
	}
	s.state.IsAuthenticated = s.state.User != nil && s.state.Token != ""
	s.state.IsLoading = false
}

// Snapshot returns the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// SetUser records a signed-in user.
func (s *Session) SetUser(ctx context.Context, user User, token string) {
	s.mu.Lock()
	s.state = SessionState{User: &user, Token: token, IsAuthenticated: true}
	s.mu.Unlock()
	s.persist(ctx)
}

// ClearUser signs the user out.
func (s *Session) ClearUser(ctx context.Context) {
	s.mu.Lock()
	s.state = SessionState{}
	s.mu.Unlock()
	s.persist(ctx)
}

// SetLoading toggles the loading flag. It is not persisted.
func (s *Session) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
}

func (s *Session) persist(ctx context.Context) {
	s.mu.Lock()
	p := persistedSession{User: s.state.User}
	if s.state.Token != "" {
		token := s.state.Token
		p.Token = &token
	}
	s.mu.Unlock()

	if err := save(ctx, s.backend, SessionKey, p); err != nil {
		s.logger.Warn("Failed to persist session", "error", err)
	}
}
