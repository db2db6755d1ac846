package service

import (
	"context"
	"fmt"

	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/models"
)

// ListBoards returns the boards visible to the current user. Without a
// token it returns an empty list instead of failing.
func (s *Service) ListBoards(ctx context.Context) ([]models.Board, error) {
	if !s.client.HasToken(ctx) {
		s.logger.Warn("No access token available for fetching boards")
		return []models.Board{}, nil
	}

	boards, err := query(ctx, s, cache.Boards(), s.boardsStale, func(ctx context.Context) ([]models.Board, error) {
		var page models.Page[models.Board]
		err := s.client.Get(ctx, "/api/boards/", &page)
		return listOrEmpty(page.Items(), err)
	})
	if err != nil {
		s.logger.Error("ListBoards failed", "error", err)
		return nil, err
	}
	s.logger.Debug("ListBoards successful", "count", len(boards))
	return boards, nil
}

// GetBoard returns a board with its lists and cards.
func (s *Service) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	board, err := query(ctx, s, cache.Board(id), s.detailStale, func(ctx context.Context) (models.Board, error) {
		var b models.Board
		err := s.client.Get(ctx, boardPath(id), &b)
		return b, err
	})
	if err != nil {
		s.logger.Error("GetBoard failed", "board_id", id, "error", err)
		return nil, err
	}
	return &board, nil
}

// CreateBoard creates a board owned by the current user.
func (s *Service) CreateBoard(ctx context.Context, in models.BoardInput) (*models.Board, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var b models.Board
	if err := s.client.Post(ctx, "/api/boards/", in, &b); err != nil {
		s.logger.Error("CreateBoard failed", "error", err)
		return nil, err
	}
	s.invalidate(cache.Boards())
	s.logger.Info("Board created", "board_id", b.ID, "title", b.Title)
	return &b, nil
}

// UpdateBoard patches a board and stores the answer as its cached detail.
func (s *Service) UpdateBoard(ctx context.Context, id int64, in models.BoardInput) (*models.Board, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var b models.Board
	if err := s.client.Patch(ctx, boardPath(id), in, &b); err != nil {
		s.logger.Error("UpdateBoard failed", "board_id", id, "error", err)
		return nil, err
	}
	s.cache.Set(cache.Board(id), b)
	s.invalidate(cache.Boards())
	s.logger.Info("Board updated", "board_id", id)
	return &b, nil
}

// ToggleFavorite flips the board's favorite flag.
func (s *Service) ToggleFavorite(ctx context.Context, id int64) (*models.Board, error) {
	b, err := s.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.UpdateBoard(ctx, id, models.BoardInput{IsFavorite: models.Ptr(!b.IsFavorite)})
}

// DeleteBoard deletes a board and drops everything cached under it.
func (s *Service) DeleteBoard(ctx context.Context, id int64) error {
	if err := s.requireToken(ctx); err != nil {
		return err
	}

	if err := s.client.Delete(ctx, boardPath(id)); err != nil {
		s.logger.Error("DeleteBoard failed", "board_id", id, "error", err)
		return err
	}
	s.cache.Remove(cache.Board(id))
	s.invalidate(cache.Boards())
	s.logger.Info("Board deleted", "board_id", id)
	return nil
}

// InviteUser sends a team invitation by email.
func (s *Service) InviteUser(ctx context.Context, email string) (*models.InviteResponse, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var resp models.InviteResponse
	if err := s.client.Post(ctx, "/api/auth/invite/", models.InviteRequest{Email: email}, &resp); err != nil {
		s.logger.Error("InviteUser failed", "email", email, "error", err)
		return nil, err
	}
	s.invalidate(cache.Boards())
	return &resp, nil
}

func boardPath(id int64) string {
	return fmt.Sprintf("/api/boards/%d/", id)
}
