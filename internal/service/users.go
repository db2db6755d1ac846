package service

import (
	"context"

	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/models"
)

// Me returns the current user's profile.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}
	u, err := query(ctx, s, cache.Me(), s.detailStale, func(ctx context.Context) (models.User, error) {
		u, err := s.client.Me(ctx)
		if err != nil {
			return models.User{}, err
		}
		return *u, nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile changes profile fields and caches the result.
func (s *Service) UpdateProfile(ctx context.Context, in models.ProfileInput) (*models.User, error) {
	u, err := s.client.UpdateProfile(ctx, in)
	if err != nil {
		s.logger.Error("UpdateProfile failed", "error", err)
		return nil, err
	}
	s.cache.Set(cache.Me(), *u)
	return u, nil
}
