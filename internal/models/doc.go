// Package models defines the wire types exchanged with the travel board API.
//
// # Entities
//
// The server owns every record and assigns all IDs and timestamps:
//   - Board: a trip, holding ordered Lists
//   - List: a column of Cards within a board
//   - Card: a task or booking, optionally carrying a budget, category and location
//   - Expense: a budget line, possibly mirrored from a Card
//   - Location: a map pin attached to a board
//   - User: an account, owner or member of boards
//
// BudgetSummary is a read-only aggregate computed from a board's expenses.
//
// # Money
//
// Monetary fields travel as decimal strings ("1500.00") and are decoded into
// decimal.Decimal. Numbers are accepted as well since some endpoints send them
// unquoted.
//
// # Inputs
//
// Create and update payloads (BoardInput, CardInput, ...) use pointer fields
// tagged omitempty so that a PATCH body only carries the fields being changed.
//
// # Validation
//
// Types implementing Validate are checked once, at decode time, by the API
// client. Consumers can assume a decoded value has already passed it.
package models
