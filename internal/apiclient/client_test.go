package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/travelboard/internal/models"
	"github.com/mmynk/travelboard/internal/storage/memory"
	"github.com/mmynk/travelboard/internal/token"
	"github.com/mmynk/travelboard/pkg/logging"
)

func newTokens(t *testing.T, access, refresh string) *token.Store {
	t.Helper()
	t.Setenv(token.EnvOverride, "")
	s := token.New(memory.New(), logging.Discard())
	if access != "" || refresh != "" {
		if err := s.SetTokens(context.Background(), access, refresh); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestDoAttachesHeaders(t *testing.T) {
	var gotAuth, gotType, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "title": "Bali Trip", "budget": "1500.00"})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", newTokens(t, "tok", "ref"), WithLogger(logging.Discard()))
	var b models.Board
	if err := c.Get(context.Background(), "/api/boards/1/", &b); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotID == "" {
		t.Error("missing X-Request-ID")
	}
	if b.Title != "Bali Trip" || b.Budget.String() != "1500" {
		t.Errorf("decoded board = %+v", b)
	}
}

func TestDoWithoutTokenSendsNoAuthorization(t *testing.T) {
	var sawAuth atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			sawAuth.Store(true)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
	}))
	defer srv.Close()

	c := New(srv.URL, newTokens(t, "", ""), WithLogger(logging.Discard()))
	err := c.Get(context.Background(), "/api/boards/", nil)

	var he *HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
	if he.Message != "Authentication credentials were not provided." {
		t.Errorf("Message = %q", he.Message)
	}
	if sawAuth.Load() {
		t.Error("Authorization header sent without a token")
	}
}

func TestRefreshAndRetryOnce(t *testing.T) {
	var calls, refreshes atomic.Int32
	var retriedWith string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == RefreshPath {
			refreshes.Add(1)
			if r.Header.Get("Authorization") != "" {
				t.Error("refresh request must not carry a bearer token")
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refresh"] != "ref" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"access": "fresh"})
			return
		}
		n := calls.Add(1)
		if n == 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Given token not valid for any token type"})
			return
		}
		retriedWith = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": 3, "email": "a@b.c"}})
	}))
	defer srv.Close()

	tokens := newTokens(t, "stale", "ref")
	reg := prometheus.NewRegistry()
	c := New(srv.URL, tokens, WithLogger(logging.Discard()), WithRegisterer(reg))

	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.ID != 3 {
		t.Errorf("user id = %d", user.ID)
	}
	if calls.Load() != 2 {
		t.Errorf("resource calls = %d, want 2", calls.Load())
	}
	if refreshes.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshes.Load())
	}
	if retriedWith != "Bearer fresh" {
		t.Errorf("retry Authorization = %q", retriedWith)
	}
	ctx := context.Background()
	if tokens.AccessToken(ctx) != "fresh" || tokens.RefreshToken(ctx) != "ref" {
		t.Errorf("stored tokens = %q/%q", tokens.AccessToken(ctx), tokens.RefreshToken(ctx))
	}
	if got := testutil.ToFloat64(c.metrics.refreshes.WithLabelValues("success")); got != 1 {
		t.Errorf("refresh success metric = %v", got)
	}
	if got := testutil.ToFloat64(c.metrics.requests.WithLabelValues("GET", "401")); got != 1 {
		t.Errorf("GET 401 metric = %v", got)
	}
}

func TestRetryHappensOnlyOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == RefreshPath {
			writeJSON(w, http.StatusOK, map[string]string{"access": "fresh", "refresh": "ref2"})
			return
		}
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "nope"})
	}))
	defer srv.Close()

	tokens := newTokens(t, "stale", "ref")
	c := New(srv.URL, tokens, WithLogger(logging.Discard()))
	err := c.Get(context.Background(), "/api/boards/", nil)
	if StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 after retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("resource calls = %d, want 2", calls.Load())
	}
	if got := tokens.RefreshToken(context.Background()); got != "ref2" {
		t.Errorf("rotated refresh token not stored: %q", got)
	}
}

func TestFailedRefreshExpiresSession(t *testing.T) {
	tests := []struct {
		name    string
		refresh string
	}{
		{"invalid refresh token", "bad"},
		{"absent refresh token", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == RefreshPath {
					writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired"})
					return
				}
				calls.Add(1)
				writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "expired"})
			}))
			defer srv.Close()

			tokens := newTokens(t, "stale", tt.refresh)
			var hooked atomic.Bool
			c := New(srv.URL, tokens,
				WithLogger(logging.Discard()),
				WithSessionExpiredHook(func() { hooked.Store(true) }),
			)

			err := c.Get(context.Background(), "/api/boards/1/", nil)
			if !errors.Is(err, ErrSessionExpired) {
				t.Fatalf("expected ErrSessionExpired, got %v", err)
			}
			if calls.Load() != 1 {
				t.Errorf("resource calls = %d, want 1 (no retry)", calls.Load())
			}
			ctx := context.Background()
			if tokens.AccessToken(ctx) != "" || tokens.RefreshToken(ctx) != "" {
				t.Error("tokens should be cleared")
			}
			if !hooked.Load() {
				t.Error("session expired hook not called")
			}
		})
	}
}

func TestErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message wins", `{"message":"m","detail":"d","error":"e"}`, "m"},
		{"detail", `{"detail":"Not found."}`, "Not found."},
		{"non field errors", `{"non_field_errors":["Invalid credentials","Try again"]}`, "Invalid credentials, Try again"},
		{"error", `{"error":"Email is required"}`, "Email is required"},
		{"field arrays", `{"title":["This field is required."],"start_date":["Bad date."]}`, "Start date: Bad date.\nTitle: This field is required."},
		{"unparseable", `<html>oops</html>`, "HTTP 400: Bad Request"},
		{"empty", ``, "HTTP 400: Bad Request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, newTokens(t, "", ""), WithLogger(logging.Discard()))
			err := c.Post(context.Background(), "/api/boards/", map[string]string{}, nil)

			var he *HTTPError
			if !errors.As(err, &he) {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if he.Message != tt.want {
				t.Errorf("Message = %q, want %q", he.Message, tt.want)
			}
			if he.Body == nil {
				t.Error("Body should never be nil")
			}
			if !IsValidation(err) {
				t.Error("IsValidation should be true for 400")
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	he := &HTTPError{Body: map[string]any{
		"detail":   "ignored",
		"email":    []any{"Enter a valid email address."},
		"password": []any{"Too short.", "Too common."},
	}}
	fe := he.FieldErrors()
	if len(fe) != 2 {
		t.Fatalf("FieldErrors = %v", fe)
	}
	if strings.Join(fe["password"], "|") != "Too short.|Too common." {
		t.Errorf("password errors = %v", fe["password"])
	}
}

func TestNotFoundIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
	}))
	defer srv.Close()

	c := New(srv.URL, newTokens(t, "tok", "ref"), WithLogger(logging.Discard()))
	err := c.Get(context.Background(), "/api/boards/99/", nil)
	if !IsNotFound(err) {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	reg := prometheus.NewRegistry()
	c := New(url, newTokens(t, "tok", "ref"), WithLogger(logging.Discard()), WithRegisterer(reg))
	err := c.Get(context.Background(), "/api/boards/", nil)
	if !IsConnectivity(err) {
		t.Fatalf("expected ConnectivityError, got %v", err)
	}
	if StatusCode(err) != 0 {
		t.Error("connectivity errors carry no status")
	}
	if got := testutil.ToFloat64(c.metrics.requests.WithLabelValues("GET", "error")); got != 1 {
		t.Errorf("error metric = %v", got)
	}
}

func TestDecodeValidatesResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		case "/invalid":
			writeJSON(w, http.StatusOK, map[string]any{"id": 1, "status": "archived"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"count": 1, "results": []any{map[string]any{"id": 0}}})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, newTokens(t, "tok", "ref"), WithLogger(logging.Discard()))
	ctx := context.Background()

	b := models.Board{Title: "kept"}
	if err := c.Delete(ctx, "/empty"); err != nil {
		t.Errorf("204 should succeed: %v", err)
	}
	if err := c.Get(ctx, "/empty", &b); err != nil || b.Title != "kept" {
		t.Errorf("204 should leave out untouched: %v %+v", err, b)
	}

	var de *DecodeError
	if err := c.Get(ctx, "/invalid", &b); !errors.As(err, &de) {
		t.Errorf("expected DecodeError for unknown status, got %v", err)
	}
	var page models.Page[models.Board]
	if err := c.Get(ctx, "/page", &page); !errors.As(err, &de) {
		t.Errorf("expected DecodeError for board without id, got %v", err)
	}
}

func TestLoginStoresTokensAndLogoutClears(t *testing.T) {
	var loggedOut atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			writeJSON(w, http.StatusOK, map[string]any{
				"message": "Login successful",
				"user":    map[string]any{"id": 1, "email": "a@b.c"},
				"tokens":  map[string]string{"access": "acc", "refresh": "ref"},
			})
		case "/api/auth/logout/":
			loggedOut.Store(true)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "boom"})
		}
	}))
	defer srv.Close()

	tokens := newTokens(t, "", "")
	c := New(srv.URL, tokens, WithLogger(logging.Discard()))
	ctx := context.Background()

	resp, err := c.Login(ctx, "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.User.ID != 1 || tokens.AccessToken(ctx) != "acc" {
		t.Errorf("login did not store tokens: %+v", resp)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if !loggedOut.Load() {
		t.Error("logout endpoint not called")
	}
	if tokens.AccessToken(ctx) != "" {
		t.Error("tokens should be cleared even when the server fails")
	}

	if _, err := c.Me(ctx); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("Me without token: got %v, want ErrAuthRequired", err)
	}
}
