// Package stubapi is an in-memory travel board backend speaking the same REST
// contract as the hosted API. It exists so the client can be exercised end to
// end without network access: `travelboard stub` serves it locally and the
// package tests run against it through httptest.
package stubapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/travelboard/internal/auth"
	"github.com/mmynk/travelboard/internal/middleware"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
	DefaultSecret     = "travelboard-stub-secret"
)

// Config holds the stub backend settings.
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// BcryptCost of 0 selects bcrypt's default; tests pass bcrypt.MinCost.
	BcryptCost int
	Logger     *slog.Logger
}

// Server is the stub backend.
type Server struct {
	store  *store
	jwt    *auth.JWTManager
	authn  auth.Authenticator
	logger *slog.Logger
	router http.Handler
}

// New creates a stub backend with an empty database.
func New(cfg Config) *Server {
	if cfg.Secret == "" {
		cfg.Secret = DefaultSecret
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	st := newStore()
	s := &Server{
		store:  st,
		jwt:    auth.NewJWTManager(cfg.Secret, cfg.AccessTTL, cfg.RefreshTTL),
		authn:  auth.NewPasswordAuthenticator(st, cfg.BcryptCost),
		logger: cfg.Logger,
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	s.router = c.Handler(s.buildRouter())
	return s
}

// ServeHTTP delegates to the router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves the API on addr, with HTTP/2 over cleartext, until
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Stub API listening", "address", addr, "url", fmt.Sprintf("http://%s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down stub API: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method))
	})

	r.With(middleware.OptionalAuth(s.jwt)).Get("/api/health/", s.handleHealth)

	// Anonymous auth endpoints
	r.Post("/api/auth/register/", s.handleRegister)
	r.Post("/api/auth/login/", s.handleLogin)
	r.Post("/api/auth/token/refresh/", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.jwt))

		r.Post("/api/auth/logout/", s.handleLogout)
		r.Get("/api/auth/me/", s.handleMe)
		r.Put("/api/auth/me/", s.handleUpdateMe)
		r.Patch("/api/auth/me/", s.handleUpdateMe)
		r.Post("/api/auth/invite/", s.handleInvite)

		r.Route("/api/boards", func(r chi.Router) {
			r.Get("/", s.handleBoardList)
			r.Post("/", s.handleBoardCreate)
			r.Patch("/cards/{cardID}/move/", s.handleCardMove)

			r.Route("/{boardID}", func(r chi.Router) {
				r.Get("/", s.handleBoardGet)
				r.Patch("/", s.handleBoardUpdate)
				r.Put("/", s.handleBoardUpdate)
				r.Delete("/", s.handleBoardDelete)

				r.Post("/lists/", s.handleListCreate)
				r.Patch("/lists/{listID}/", s.handleListUpdate)
				r.Delete("/lists/{listID}/", s.handleListDelete)

				r.Post("/lists/{listID}/cards/", s.handleCardCreate)
				r.Patch("/lists/{listID}/cards/{cardID}/", s.handleCardUpdate)
				r.Delete("/lists/{listID}/cards/{cardID}/", s.handleCardDelete)
			})
		})

		r.Route("/api/budget", func(r chi.Router) {
			r.Get("/boards/{boardID}/expenses/", s.handleExpenseList)
			r.Post("/boards/{boardID}/expenses/", s.handleExpenseCreate)
			r.Get("/boards/{boardID}/budget/summary/", s.handleBudgetSummary)
			r.Patch("/expenses/{expenseID}/", s.handleExpenseUpdate)
			r.Delete("/expenses/{expenseID}/", s.handleExpenseDelete)
		})

		r.Route("/api/maps", func(r chi.Router) {
			r.Get("/boards/{boardID}/locations/", s.handleLocationList)
			r.Post("/boards/{boardID}/locations/", s.handleLocationCreate)
			r.Patch("/locations/{locationID}/", s.handleLocationUpdate)
			r.Delete("/locations/{locationID}/", s.handleLocationDelete)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Travel Kanban API is running",
		"status":        "healthy",
		"authenticated": middleware.GetUserID(r.Context()) != 0,
	})
}
