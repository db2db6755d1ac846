package reorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/travelboard/internal/models"
)

// Mover issues card moves. *service.Service satisfies it.
type Mover interface {
	MoveCard(ctx context.Context, boardID, cardID int64, in models.MoveCardInput) (*models.Card, error)
}

// Coordinator applies drops to per-board layouts and sends them to the
// server one at a time.
type Coordinator struct {
	mover  Mover
	logger *slog.Logger

	// moveMu serialises moves so a rollback never undoes a later drop.
	moveMu sync.Mutex

	mu      sync.Mutex
	layouts map[int64]Layout
}

// NewCoordinator creates a coordinator sending moves through mover.
func NewCoordinator(mover Mover, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		mover:   mover,
		logger:  logger,
		layouts: make(map[int64]Layout),
	}
}

// Load replaces the layout of a board with the server's view of it.
func (c *Coordinator) Load(b models.Board) Layout {
	l := LayoutOf(b)
	c.mu.Lock()
	c.layouts[b.ID] = l
	c.mu.Unlock()
	return l.Clone()
}

// Layout returns a copy of a board's current layout.
func (c *Coordinator) Layout(boardID int64) (Layout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.layouts[boardID]
	if !ok {
		return Layout{}, false
	}
	return l.Clone(), true
}

// Drop applies d to the board's layout and sends the move. When the move
// fails the layout is restored to its state before the drop and the error
// is returned. No-op drops send nothing.
func (c *Coordinator) Drop(ctx context.Context, boardID int64, d Drop) error {
	in, ok := Plan(d)
	if !ok {
		return nil
	}

	c.moveMu.Lock()
	defer c.moveMu.Unlock()

	c.mu.Lock()
	current, loaded := c.layouts[boardID]
	var snapshot Layout
	if loaded {
		snapshot = current.Clone()
		next := current.Clone()
		if err := next.Apply(d); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("applying drop: %w", err)
		}
		c.layouts[boardID] = next
	}
	c.mu.Unlock()

	if _, err := c.mover.MoveCard(ctx, boardID, d.CardID, in); err != nil {
		if loaded {
			c.mu.Lock()
			c.layouts[boardID] = snapshot
			c.mu.Unlock()
		}
		c.logger.Warn("Card move failed, layout restored",
			"board_id", boardID,
			"card_id", d.CardID,
			"error", err,
		)
		return err
	}
	return nil
}
