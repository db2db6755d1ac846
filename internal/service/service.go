// Package service is the resource query and mutation layer of the client.
//
// Reads go through the query cache; every mutation declares the cache keys
// it invalidates on success. Operations that need a session fail with
// apiclient.ErrAuthRequired before touching the network when no token is
// stored.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmynk/travelboard/internal/apiclient"
	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/models"
)

// DefaultBoardsStaleTime is how long the boards list is served from cache.
const DefaultBoardsStaleTime = 5 * time.Minute

// CardEffect reacts to a card that was created or updated. Implementations
// must not block; they run after the card's own invalidations.
type CardEffect interface {
	CardSaved(ctx context.Context, boardID int64, card models.Card)
}

// Service exposes typed operations over the board API.
type Service struct {
	client *apiclient.Client
	cache  *cache.Cache
	logger *slog.Logger

	boardsStale time.Duration
	detailStale time.Duration
	retries     int
	retryDelay  time.Duration

	effects []CardEffect
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStaleTime sets how long the boards list and detail reads stay fresh.
// A zero detail stale time refetches on every read.
func WithStaleTime(boards, detail time.Duration) Option {
	return func(s *Service) {
		s.boardsStale = boards
		s.detailStale = detail
	}
}

// WithQueryRetry sets how often failed reads are retried and the initial
// backoff. Only connectivity errors and 5xx answers are retried.
func WithQueryRetry(retries int, delay time.Duration) Option {
	return func(s *Service) {
		s.retries = retries
		s.retryDelay = delay
	}
}

// New creates a service on top of client and c.
func New(client *apiclient.Client, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		client:      client,
		cache:       c,
		logger:      slog.Default(),
		boardsStale: DefaultBoardsStaleTime,
		retries:     2,
		retryDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnCardSaved registers effects run after card create and update.
func (s *Service) OnCardSaved(effects ...CardEffect) {
	s.effects = append(s.effects, effects...)
}

// Cache returns the query cache, for subscribers.
func (s *Service) Cache() *cache.Cache { return s.cache }

// Client returns the underlying API client.
func (s *Service) Client() *apiclient.Client { return s.client }

func (s *Service) requireToken(ctx context.Context) error {
	if !s.client.HasToken(ctx) {
		return apiclient.ErrAuthRequired
	}
	return nil
}

func (s *Service) invalidate(keys ...cache.Key) {
	s.cache.Invalidate(keys...)
}

func (s *Service) cardSaved(ctx context.Context, boardID int64, card models.Card) {
	for _, e := range s.effects {
		e.CardSaved(ctx, boardID, card)
	}
}

// query reads key through the cache, retrying transient failures.
func query[T any](ctx context.Context, s *Service, key cache.Key, staleTime time.Duration, fn func(context.Context) (T, error)) (T, error) {
	return cache.Fetch(ctx, s.cache, key, staleTime, func(ctx context.Context) (T, error) {
		delay := s.retryDelay
		for attempt := 0; ; attempt++ {
			v, err := fn(ctx)
			if err == nil || attempt >= s.retries || !retryable(err) {
				return v, err
			}
			s.logger.Debug("Retrying query", "key", key.String(), "attempt", attempt+1, "error", err)
			select {
			case <-ctx.Done():
				return v, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	})
}

func retryable(err error) bool {
	if errors.Is(err, apiclient.ErrAuthRequired) || errors.Is(err, apiclient.ErrSessionExpired) {
		return false
	}
	if apiclient.IsConnectivity(err) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return apiclient.StatusCode(err) >= http.StatusInternalServerError
}

// listOrEmpty turns a 404 on a collection read into an empty collection.
func listOrEmpty[T any](items []T, err error) ([]T, error) {
	if apiclient.IsNotFound(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}
