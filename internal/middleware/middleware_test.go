package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/travelboard/internal/auth"
	"github.com/mmynk/travelboard/pkg/logging"
)

func TestRequireAuth(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute, time.Hour)
	access, refresh, err := m.Generate(5)
	if err != nil {
		t.Fatal(err)
	}

	var seen int64
	h := RequireAuth(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid access token", "Bearer " + access, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + access, http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/api/boards/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && seen != 5 {
				t.Errorf("user id in context = %d, want 5", seen)
			}
			if tt.want == http.StatusUnauthorized {
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["detail"] == "" {
					t.Errorf("expected detail body, got %q", rec.Body.String())
				}
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute, time.Hour)
	access, _ := m.Access(9)

	var seen int64
	h := OptionalAuth(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != 0 {
		t.Errorf("anonymous request got user %d", seen)
	}

	req.Header.Set("Authorization", "Bearer "+access)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != 9 {
		t.Errorf("user id = %d, want 9", seen)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo)

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing/", nil))

	out := buf.String()
	if !strings.Contains(out, "HTTP ok") || !strings.Contains(out, "status=200") {
		t.Errorf("missing ok line: %q", out)
	}
	if !strings.Contains(out, "HTTP error") || !strings.Contains(out, "status=404") {
		t.Errorf("missing error line: %q", out)
	}
}
