package service

import (
	"context"
	"fmt"

	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/models"
)

// ListLocations returns a board's map pins.
func (s *Service) ListLocations(ctx context.Context, boardID int64) ([]models.Location, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("/api/maps/boards/%d/locations/", boardID)
	return queryList[models.Location](ctx, s, cache.BoardSub(boardID, "locations"), endpoint)
}

// CreateLocation pins a location on a board.
func (s *Service) CreateLocation(ctx context.Context, boardID int64, in models.LocationInput) (*models.Location, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}
	if in.Lat != nil && in.Lng != nil {
		if err := models.ValidateCoordinates(*in.Lat, *in.Lng); err != nil {
			return nil, err
		}
	}

	var l models.Location
	if err := s.client.Post(ctx, fmt.Sprintf("/api/maps/boards/%d/locations/", boardID), in, &l); err != nil {
		s.logger.Error("CreateLocation failed", "board_id", boardID, "error", err)
		return nil, err
	}
	s.invalidate(cache.BoardSub(boardID, "locations"))
	return &l, nil
}

// UpdateLocation patches a location of boardID.
func (s *Service) UpdateLocation(ctx context.Context, boardID, locationID int64, in models.LocationInput) (*models.Location, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var l models.Location
	if err := s.client.Patch(ctx, locationPath(locationID), in, &l); err != nil {
		s.logger.Error("UpdateLocation failed", "location_id", locationID, "error", err)
		return nil, err
	}
	s.invalidate(cache.BoardSub(boardID, "locations"))
	return &l, nil
}

// DeleteLocation removes a location of boardID.
func (s *Service) DeleteLocation(ctx context.Context, boardID, locationID int64) error {
	if err := s.requireToken(ctx); err != nil {
		return err
	}

	if err := s.client.Delete(ctx, locationPath(locationID)); err != nil {
		s.logger.Error("DeleteLocation failed", "location_id", locationID, "error", err)
		return err
	}
	s.invalidate(cache.BoardSub(boardID, "locations"))
	return nil
}

func locationPath(id int64) string {
	return fmt.Sprintf("/api/maps/locations/%d/", id)
}
