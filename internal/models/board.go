package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BoardStatus is the lifecycle stage of a trip.
type BoardStatus string

const (
	BoardPlanning  BoardStatus = "planning"
	BoardActive    BoardStatus = "active"
	BoardCompleted BoardStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s BoardStatus) Valid() bool {
	switch s {
	case BoardPlanning, BoardActive, BoardCompleted:
		return true
	}
	return false
}

// Board is a trip: the top-level container of lists.
type Board struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Owner       User            `json:"owner"`
	Members     []User          `json:"members"`
	Status      BoardStatus     `json:"status"`
	Budget      decimal.Decimal `json:"budget"`
	Currency    string          `json:"currency"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	IsFavorite  bool            `json:"is_favorite"`
	Tags        []string        `json:"tags"`
	CoverImage  string          `json:"cover_image"`

	// Lists are ordered by Position on display; the server does not promise
	// contiguous positions.
	Lists []List `json:"lists"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields later code relies on.
func (b *Board) Validate() error {
	if b.ID <= 0 {
		return fmt.Errorf("board: missing id")
	}
	if b.Status != "" && !b.Status.Valid() {
		return fmt.Errorf("board %d: unknown status %q", b.ID, b.Status)
	}
	if b.Currency != "" && !validCurrency(b.Currency) {
		return fmt.Errorf("board %d: invalid currency %q", b.ID, b.Currency)
	}
	for i := range b.Lists {
		if b.Lists[i].Board != 0 && b.Lists[i].Board != b.ID {
			return fmt.Errorf("board %d: list %d belongs to board %d", b.ID, b.Lists[i].ID, b.Lists[i].Board)
		}
	}
	return nil
}

// SortedLists returns the board's lists ordered by position, then id.
// Cards inside each returned list are sorted the same way.
func (b *Board) SortedLists() []List {
	out := make([]List, len(b.Lists))
	for i, l := range b.Lists {
		l.Cards = l.SortedCards()
		out[i] = l
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindList returns the list with the given id.
func (b *Board) FindList(id int64) (*List, bool) {
	for i := range b.Lists {
		if b.Lists[i].ID == id {
			return &b.Lists[i], true
		}
	}
	return nil, false
}

// FindCard returns the card with the given id and the list holding it.
func (b *Board) FindCard(id int64) (*Card, *List, bool) {
	for i := range b.Lists {
		l := &b.Lists[i]
		for j := range l.Cards {
			if l.Cards[j].ID == id {
				return &l.Cards[j], l, true
			}
		}
	}
	return nil, nil, false
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// List is an ordered column of cards inside a board.
type List struct {
	ID        int64     `json:"id"`
	Board     int64     `json:"board"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	Cards     []Card    `json:"cards"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate rejects lists without an id.
func (l *List) Validate() error {
	if l.ID <= 0 {
		return fmt.Errorf("list: missing id")
	}
	return nil
}

// SortedCards returns a copy of the list's cards ordered by position, then id.
func (l List) SortedCards() []Card {
	out := make([]Card, len(l.Cards))
	copy(out, l.Cards)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BoardInput is the create/update payload for a board.
type BoardInput struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *BoardStatus     `json:"status,omitempty"`
	Budget      *decimal.Decimal `json:"budget,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	StartDate   *string          `json:"start_date,omitempty"`
	EndDate     *string          `json:"end_date,omitempty"`
	IsFavorite  *bool            `json:"is_favorite,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	CoverImage  *string          `json:"cover_image,omitempty"`
}

// ListInput is the create/update payload for a list.
type ListInput struct {
	Title    *string `json:"title,omitempty"`
	Color    *string `json:"color,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// Ptr returns a pointer to v. Handy for building input payloads.
func Ptr[T any](v T) *T { return &v }
