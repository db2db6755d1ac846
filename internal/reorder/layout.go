// Package reorder turns drag-and-drop gestures on a board into move
// mutations and keeps a local layout of the board that is updated
// optimistically and rolled back when the server refuses a move.
package reorder

import (
	"errors"
	"fmt"

	"github.com/mmynk/travelboard/internal/models"
)

var (
	ErrUnknownList = errors.New("unknown list")
	ErrUnknownCard = errors.New("card not in source list")
)

// Position is a slot on a board: a list and a zero-based index within it.
type Position struct {
	ListID int64
	Index  int
}

// Drop is a finished drag gesture. Destination is nil when the card was
// released outside any list.
type Drop struct {
	CardID      int64
	Source      Position
	Destination *Position
}

// Plan returns the move mutation for a drop, or false when the drop changes
// nothing. NewListID is only set for cross-list moves. A negative
// destination index means the top of the list.
func Plan(d Drop) (models.MoveCardInput, bool) {
	if d.Destination == nil {
		return models.MoveCardInput{}, false
	}
	dst := *d.Destination
	dst.Index = max(0, dst.Index)
	if dst == d.Source {
		return models.MoveCardInput{}, false
	}
	in := models.MoveCardInput{NewPosition: dst.Index}
	if dst.ListID != d.Source.ListID {
		in.NewListID = models.Ptr(dst.ListID)
	}
	return in, true
}

// Column is one list of a layout with its card ids in display order.
type Column struct {
	ListID int64
	Title  string
	Cards  []int64
}

// Layout is the display order of a board's lists and cards.
type Layout struct {
	Columns []Column
}

// LayoutOf builds the layout of b, ordering lists and cards by position.
func LayoutOf(b models.Board) Layout {
	lists := b.SortedLists()
	l := Layout{Columns: make([]Column, 0, len(lists))}
	for _, list := range lists {
		col := Column{ListID: list.ID, Title: list.Title, Cards: make([]int64, 0, len(list.Cards))}
		for _, c := range list.Cards {
			col.Cards = append(col.Cards, c.ID)
		}
		l.Columns = append(l.Columns, col)
	}
	return l
}

// Clone returns a deep copy.
func (l Layout) Clone() Layout {
	out := Layout{Columns: make([]Column, len(l.Columns))}
	for i, c := range l.Columns {
		c.Cards = append([]int64(nil), c.Cards...)
		out.Columns[i] = c
	}
	return out
}

// Column returns the column of listID.
func (l *Layout) Column(listID int64) (*Column, bool) {
	for i := range l.Columns {
		if l.Columns[i].ListID == listID {
			return &l.Columns[i], true
		}
	}
	return nil, false
}

// Locate returns the position of cardID.
func (l Layout) Locate(cardID int64) (Position, bool) {
	for _, c := range l.Columns {
		for i, id := range c.Cards {
			if id == cardID {
				return Position{ListID: c.ListID, Index: i}, true
			}
		}
	}
	return Position{}, false
}

// Apply performs a drop on the layout. The destination index is clamped to
// the destination list; negative indices land at the top, as Plan sends them.
func (l *Layout) Apply(d Drop) error {
	if _, ok := Plan(d); !ok {
		return nil
	}
	src, ok := l.Column(d.Source.ListID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownList, d.Source.ListID)
	}
	dst, ok := l.Column(d.Destination.ListID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownList, d.Destination.ListID)
	}

	from := -1
	for i, id := range src.Cards {
		if id == d.CardID {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("%w: card %d, list %d", ErrUnknownCard, d.CardID, d.Source.ListID)
	}
	src.Cards = append(src.Cards[:from], src.Cards[from+1:]...)

	to := max(0, min(d.Destination.Index, len(dst.Cards)))
	dst.Cards = append(dst.Cards, 0)
	copy(dst.Cards[to+1:], dst.Cards[to:])
	dst.Cards[to] = d.CardID
	return nil
}
