package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmynk/travelboard/internal/storage"
)

// UIKey is the storage key of the persisted UI preferences.
const UIKey = "ui-storage"

// UIState is a snapshot of the UI preferences.
type UIState struct {
	SidebarOpen bool
	IsMobile    bool
}

type persistedUI struct {
	SidebarOpen bool `json:"sidebarOpen"`
}

// UI holds layout preferences. Only SidebarOpen is persisted; IsMobile is
// recomputed from the terminal size at runtime.
type UI struct {
	mu      sync.Mutex
	state   UIState
	backend storage.Store
	logger  *slog.Logger
}

// NewUI creates UI preferences with the sidebar open.
func NewUI(backend storage.Store, logger *slog.Logger) *UI {
	if logger == nil {
		logger = slog.Default()
	}
	return &UI{
		state:   UIState{SidebarOpen: true},
		backend: backend,
		logger:  logger,
	}
}

// Rehydrate restores the persisted sidebar state.
func (u *UI) Rehydrate(ctx context.Context) {
	var p persistedUI
	found, err := load(ctx, u.backend, UIKey, &p)
	if err != nil {
		u.logger.Warn("Failed to restore UI state", "error", err)
	}
	if !found {
		return
	}
	u.mu.Lock()
	u.state.SidebarOpen = p.SidebarOpen
	u.mu.Unlock()
}

// Snapshot returns the current state.
func (u *UI) Snapshot() UIState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// ToggleSidebar flips the sidebar and returns its new state.
func (u *UI) ToggleSidebar(ctx context.Context) bool {
	u.mu.Lock()
	u.state.SidebarOpen = !u.state.SidebarOpen
	open := u.state.SidebarOpen
	u.mu.Unlock()
	u.persist(ctx)
	return open
}

// SetSidebarOpen opens or closes the sidebar.
func (u *UI) SetSidebarOpen(ctx context.Context, open bool) {
	u.mu.Lock()
	u.state.SidebarOpen = open
	u.mu.Unlock()
	u.persist(ctx)
}

// SetIsMobile records the layout class. Switching to mobile closes the
// sidebar, switching away opens it.
func (u *UI) SetIsMobile(ctx context.Context, mobile bool) {
	u.mu.Lock()
	u.state.IsMobile = mobile
	u.state.SidebarOpen = !mobile
	u.mu.Unlock()
	u.persist(ctx)
}

func (u *UI) persist(ctx context.Context) {
	u.mu.Lock()
	p := persistedUI{SidebarOpen: u.state.SidebarOpen}
	u.mu.Unlock()
	if err := save(ctx, u.backend, UIKey, p); err != nil {
		u.logger.Warn("Failed to persist UI state", "error", err)
	}
}
