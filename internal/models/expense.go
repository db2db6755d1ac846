package models

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory is the budget bucket of an expense.
type ExpenseCategory string

const (
	ExpenseTravel     ExpenseCategory = "travel"
	ExpenseLodging    ExpenseCategory = "lodging"
	ExpenseFood       ExpenseCategory = "food"
	ExpenseActivities ExpenseCategory = "activities"
	ExpenseFees       ExpenseCategory = "fees"
	ExpenseMisc       ExpenseCategory = "misc"
)

// ExpenseCategories lists the categories in display order.
var ExpenseCategories = []ExpenseCategory{
	ExpenseTravel, ExpenseLodging, ExpenseFood, ExpenseActivities, ExpenseFees, ExpenseMisc,
}

// Valid reports whether c is one of the known categories.
func (c ExpenseCategory) Valid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is one budget line of a board.
type Expense struct {
	ID        int64           `json:"id"`
	Board     int64           `json:"board"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Category  ExpenseCategory `json:"category"`
	Date      string          `json:"date"`
	Notes     string          `json:"notes"`
	CreatedBy *User           `json:"created_by"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate rejects expenses without an id or with an unknown category.
func (e *Expense) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("expense: missing id")
	}
	if e.Category != "" && !e.Category.Valid() {
		return fmt.Errorf("expense %d: unknown category %q", e.ID, e.Category)
	}
	return nil
}

// ExpenseInput is the create/update payload for an expense.
type ExpenseInput struct {
	Title    *string          `json:"title,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Category *ExpenseCategory `json:"category,omitempty"`
	Date     *string          `json:"date,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
}

// ExpenseFilter narrows an expense listing.
type ExpenseFilter struct {
	Category ExpenseCategory
	DateFrom string
	DateTo   string
}

// IsZero reports whether no filter is set.
func (f ExpenseFilter) IsZero() bool {
	return f == ExpenseFilter{}
}

// Query renders the filter as URL query parameters, in a stable order.
func (f ExpenseFilter) Query() url.Values {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", string(f.Category))
	}
	if f.DateFrom != "" {
		v.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		v.Set("date_to", f.DateTo)
	}
	return v
}

// CategoryTotal is the spend of one category in a budget summary.
type CategoryTotal struct {
	Category ExpenseCategory `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// BudgetSummary is the server-computed budget report of a board.
type BudgetSummary struct {
	BoardBudget      decimal.Decimal `json:"board_budget"`
	ActualSpendTotal decimal.Decimal `json:"actual_spend_total"`
	Remaining        decimal.Decimal `json:"remaining"`
	ByCategory       []CategoryTotal `json:"by_category"`
}

// EmptyBudgetSummary is reported when a board has no summary yet.
func EmptyBudgetSummary() BudgetSummary {
	return BudgetSummary{ByCategory: []CategoryTotal{}}
}
