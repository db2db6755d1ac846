package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/travelboard/internal/models"
)

// Summarize computes a budget summary from a board budget and its expenses.
//
// Algorithm:
// - actual spend is the sum of all expense amounts
// - remaining = budget - actual spend, never below zero
// - per-category totals are ordered by category name, categories without
//   expenses are left out
func Summarize(boardBudget decimal.Decimal, expenses []models.Expense) models.BudgetSummary {
	spent := decimal.Zero
	byCategory := make(map[models.ExpenseCategory]decimal.Decimal)
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}

	remaining := boardBudget.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	totals := make([]models.CategoryTotal, 0, len(byCategory))
	for cat, total := range byCategory {
		totals = append(totals, models.CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Category < totals[j].Category })

	return models.BudgetSummary{
		BoardBudget:      boardBudget,
		ActualSpendTotal: spent,
		Remaining:        remaining,
		ByCategory:       totals,
	}
}

// OverBudget reports how far actual spend exceeds the budget, or zero.
func OverBudget(s models.BudgetSummary) decimal.Decimal {
	over := s.ActualSpendTotal.Sub(s.BoardBudget)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}
