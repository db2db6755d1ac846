package service

import (
	"context"
	"fmt"

	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/models"
)

// CreateList appends a list to a board.
func (s *Service) CreateList(ctx context.Context, boardID int64, in models.ListInput) (*models.List, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var l models.List
	if err := s.client.Post(ctx, fmt.Sprintf("/api/boards/%d/lists/", boardID), in, &l); err != nil {
		s.logger.Error("CreateList failed", "board_id", boardID, "error", err)
		return nil, err
	}
	s.invalidate(cache.Board(boardID))
	s.logger.Info("List created", "board_id", boardID, "list_id", l.ID)
	return &l, nil
}

// UpdateList patches a list.
func (s *Service) UpdateList(ctx context.Context, boardID, listID int64, in models.ListInput) (*models.List, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var l models.List
	if err := s.client.Patch(ctx, listPath(boardID, listID), in, &l); err != nil {
		s.logger.Error("UpdateList failed", "board_id", boardID, "list_id", listID, "error", err)
		return nil, err
	}
	s.invalidate(cache.Board(boardID))
	return &l, nil
}

// DeleteList removes a list and its cards.
func (s *Service) DeleteList(ctx context.Context, boardID, listID int64) error {
	if err := s.requireToken(ctx); err != nil {
		return err
	}

	if err := s.client.Delete(ctx, listPath(boardID, listID)); err != nil {
		s.logger.Error("DeleteList failed", "board_id", boardID, "list_id", listID, "error", err)
		return err
	}
	s.invalidate(cache.Board(boardID))
	return nil
}

func listPath(boardID, listID int64) string {
	return fmt.Sprintf("/api/boards/%d/lists/%d/", boardID, listID)
}
