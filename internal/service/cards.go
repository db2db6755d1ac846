package service

import (
	"context"
	"fmt"

	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/models"
)

// cardKeys are the keys every card mutation invalidates.
func cardKeys(boardID int64) []cache.Key {
	return []cache.Key{
		cache.Board(boardID),
		cache.BoardSub(boardID, "budget-summary"),
		cache.BoardSub(boardID, "expenses"),
	}
}

// CreateCard adds a card to a list and hands the saved card to the
// registered card effects.
func (s *Service) CreateCard(ctx context.Context, boardID, listID int64, in models.CardInput) (*models.Card, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var c models.Card
	if err := s.client.Post(ctx, fmt.Sprintf("/api/boards/%d/lists/%d/cards/", boardID, listID), in, &c); err != nil {
		s.logger.Error("CreateCard failed", "board_id", boardID, "list_id", listID, "error", err)
		return nil, err
	}
	s.invalidate(cardKeys(boardID)...)
	s.logger.Info("Card created", "board_id", boardID, "card_id", c.ID)
	s.cardSaved(ctx, boardID, c)
	return &c, nil
}

// UpdateCard patches a card and hands the saved card to the registered
// card effects.
func (s *Service) UpdateCard(ctx context.Context, boardID, listID, cardID int64, in models.CardInput) (*models.Card, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var c models.Card
	if err := s.client.Patch(ctx, cardPath(boardID, listID, cardID), in, &c); err != nil {
		s.logger.Error("UpdateCard failed", "board_id", boardID, "card_id", cardID, "error", err)
		return nil, err
	}
	s.invalidate(cardKeys(boardID)...)
	s.cardSaved(ctx, boardID, c)
	return &c, nil
}

// DeleteCard removes a card.
func (s *Service) DeleteCard(ctx context.Context, boardID, listID, cardID int64) error {
	if err := s.requireToken(ctx); err != nil {
		return err
	}

	if err := s.client.Delete(ctx, cardPath(boardID, listID, cardID)); err != nil {
		s.logger.Error("DeleteCard failed", "board_id", boardID, "card_id", cardID, "error", err)
		return err
	}
	s.invalidate(cardKeys(boardID)...)
	return nil
}

// MoveCard repositions a card within its list or into another list of the
// same board.
func (s *Service) MoveCard(ctx context.Context, boardID, cardID int64, in models.MoveCardInput) (*models.Card, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var c models.Card
	if err := s.client.Patch(ctx, fmt.Sprintf("/api/boards/cards/%d/move/", cardID), in, &c); err != nil {
		s.logger.Error("MoveCard failed", "board_id", boardID, "card_id", cardID, "error", err)
		return nil, err
	}
	s.invalidate(cache.Board(boardID), cache.BoardSub(boardID, "budget-summary"))
	s.logger.Debug("Card moved", "board_id", boardID, "card_id", cardID, "position", in.NewPosition)
	return &c, nil
}

func cardPath(boardID, listID, cardID int64) string {
	return fmt.Sprintf("/api/boards/%d/lists/%d/cards/%d/", boardID, listID, cardID)
}
