package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CardCategory tags a card with the kind of booking it represents. It only
// matters for deriving an expense category.
type CardCategory string

const (
	CardFlight   CardCategory = "flight"
	CardHotel    CardCategory = "hotel"
	CardFood     CardCategory = "food"
	CardActivity CardCategory = "activity"
	CardRomantic CardCategory = "romantic"
	CardFamily   CardCategory = "family"
)

// Normalize lowercases and trims the category.
func (c CardCategory) Normalize() CardCategory {
	return CardCategory(strings.ToLower(strings.TrimSpace(string(c))))
}

// Subtask is a checklist entry on a card.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Attachment is file metadata attached to a card.
type Attachment struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// CardLocation is the denormalised location copy embedded in a card.
type CardLocation struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Card is an item within a list.
type Card struct {
	ID              int64           `json:"id"`
	List            int64           `json:"list"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Budget          decimal.Decimal `json:"budget"`
	PeopleNumber    int             `json:"people_number"`
	Tags            []string        `json:"tags"`
	DueDate         string          `json:"due_date"`
	AssignedMembers []User          `json:"assigned_members"`
	Subtasks        []Subtask       `json:"subtasks"`
	Attachments     []Attachment    `json:"attachments"`
	Location        *CardLocation   `json:"location"`
	Position        int             `json:"position"`
	Category        CardCategory    `json:"category,omitempty"`

	// ExpenseID points at the expense mirrored from this card, when the
	// server recorded one.
	ExpenseID *int64 `json:"expense_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate rejects cards without an id or with a negative budget.
func (c *Card) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("card: missing id")
	}
	if c.Budget.IsNegative() {
		return fmt.Errorf("card %d: negative budget %s", c.ID, c.Budget)
	}
	return nil
}

// CompletedSubtasks counts the subtasks marked done.
func (c Card) CompletedSubtasks() int {
	n := 0
	for _, s := range c.Subtasks {
		if s.Completed {
			n++
		}
	}
	return n
}

// CardInput is the create/update payload for a card.
type CardInput struct {
	Title        *string          `json:"title,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Budget       *decimal.Decimal `json:"budget,omitempty"`
	PeopleNumber *int             `json:"people_number,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	DueDate      *string          `json:"due_date,omitempty"`
	Subtasks     []Subtask        `json:"subtasks,omitempty"`
	Location     *CardLocation    `json:"location,omitempty"`
	Position     *int             `json:"position,omitempty"`
	Category     *CardCategory    `json:"category,omitempty"`
	ExpenseID    *int64           `json:"expense_id,omitempty"`
}

// MoveCardInput is the payload for PATCH /api/boards/cards/{id}/move/.
// NewListID is omitted when the card stays in its list.
type MoveCardInput struct {
	NewListID   *int64 `json:"new_list_id,omitempty"`
	NewPosition int    `json:"new_position"`
}
