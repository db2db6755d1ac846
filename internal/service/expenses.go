package service

import (
	"context"
	"fmt"

	"github.com/mmynk/travelboard/internal/apiclient"
	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/models"
)

func expenseKeys(boardID int64) []cache.Key {
	return []cache.Key{
		cache.BoardSub(boardID, "expenses"),
		cache.BoardSub(boardID, "budget-summary"),
	}
}

// ListExpenses returns a board's expenses, optionally filtered. A 404 is
// treated as no expenses yet.
func (s *Service) ListExpenses(ctx context.Context, boardID int64, filter models.ExpenseFilter) ([]models.Expense, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/api/budget/boards/%d/expenses/", boardID)
	qs := filter.Query().Encode()
	if qs != "" {
		endpoint += "?" + qs
	}

	key := cache.BoardSub(boardID, "expenses", qs)
	return queryList[models.Expense](ctx, s, key, endpoint)
}

// CreateExpense adds an expense to a board. The server fills in the date and
// the board's currency when omitted.
func (s *Service) CreateExpense(ctx context.Context, boardID int64, in models.ExpenseInput) (*models.Expense, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var e models.Expense
	if err := s.client.Post(ctx, fmt.Sprintf("/api/budget/boards/%d/expenses/", boardID), in, &e); err != nil {
		s.logger.Error("CreateExpense failed", "board_id", boardID, "error", err)
		return nil, err
	}
	s.invalidate(expenseKeys(boardID)...)
	s.logger.Info("Expense created", "board_id", boardID, "expense_id", e.ID, "amount", e.Amount.StringFixed(2))
	return &e, nil
}

// UpdateExpense patches an expense of boardID.
func (s *Service) UpdateExpense(ctx context.Context, boardID, expenseID int64, in models.ExpenseInput) (*models.Expense, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var e models.Expense
	if err := s.client.Patch(ctx, expensePath(expenseID), in, &e); err != nil {
		s.logger.Error("UpdateExpense failed", "expense_id", expenseID, "error", err)
		return nil, err
	}
	s.invalidate(expenseKeys(boardID)...)
	return &e, nil
}

// DeleteExpense removes an expense of boardID.
func (s *Service) DeleteExpense(ctx context.Context, boardID, expenseID int64) error {
	if err := s.requireToken(ctx); err != nil {
		return err
	}

	if err := s.client.Delete(ctx, expensePath(expenseID)); err != nil {
		s.logger.Error("DeleteExpense failed", "expense_id", expenseID, "error", err)
		return err
	}
	s.invalidate(expenseKeys(boardID)...)
	return nil
}

// BudgetSummary returns the board's budget report. Servers without the
// summary endpoint answer 404, which is reported as an empty summary.
func (s *Service) BudgetSummary(ctx context.Context, boardID int64) (*models.BudgetSummary, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	summary, err := query(ctx, s, cache.BoardSub(boardID, "budget-summary"), s.detailStale, func(ctx context.Context) (models.BudgetSummary, error) {
		var sum models.BudgetSummary
		err := s.client.Get(ctx, fmt.Sprintf("/api/budget/boards/%d/budget/summary/", boardID), &sum)
		if apiclient.IsNotFound(err) {
			s.logger.Warn("Budget summary endpoint not available", "board_id", boardID)
			return models.EmptyBudgetSummary(), nil
		}
		return sum, err
	})
	if err != nil {
		s.logger.Error("BudgetSummary failed", "board_id", boardID, "error", err)
		return nil, err
	}
	return &summary, nil
}

func expensePath(id int64) string {
	return fmt.Sprintf("/api/budget/expenses/%d/", id)
}

// queryList reads a collection endpoint through the cache.
func queryList[T any](ctx context.Context, s *Service, key cache.Key, endpoint string) ([]T, error) {
	items, err := query(ctx, s, key, s.detailStale, func(ctx context.Context) ([]T, error) {
		var page models.Page[T]
		err := s.client.Get(ctx, endpoint, &page)
		return listOrEmpty(page.Items(), err)
	})
	if err != nil {
		s.logger.Error("Query failed", "key", key.String(), "error", err)
		return nil, err
	}
	return items, nil
}
