// Package apiclient executes requests against the travel board REST API.
//
// Every call goes through Client.Do, which attaches the bearer token, turns
// non-2xx answers into *HTTPError, transport failures into
// *ConnectivityError, and recovers from one expired access token by
// refreshing it and retrying the request exactly once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/travelboard/internal/models"
)

// RefreshPath is the SimpleJWT refresh endpoint.
const RefreshPath = "/api/auth/token/refresh/"

// TokenSource is the token storage the client reads and updates.
type TokenSource interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	SetTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// Client is the single HTTP entry point for the API.
type Client struct {
	baseURL          string
	tokens           TokenSource
	http             *http.Client
	logger           *slog.Logger
	metrics          *metrics
	onSessionExpired func()

	// refreshMu serialises refreshes so concurrent 401s share one.
	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegisterer registers the client's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.metrics = newMetrics(reg) }
}

// WithSessionExpiredHook sets a function called after a failed refresh has
// cleared the tokens. Front ends use it to send the user back to login.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newMetrics(nil)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// HasToken reports whether an access token is stored.
func (c *Client) HasToken(ctx context.Context) bool {
	return c.tokens != nil && c.tokens.AccessToken(ctx) != ""
}

type response struct {
	status int
	body   []byte
}

// Do sends a request and decodes a 2xx JSON body into out. A nil out, a 204
// or an empty body leaves out untouched. Decoded values implementing
// models.Validator are validated before Do returns.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	start := time.Now()
	defer func() {
		c.metrics.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	token := c.accessToken(ctx)
	resp, err := c.send(ctx, method, endpoint, payload, token)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && token != "" {
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, method, endpoint, payload, fresh)
		if err != nil {
			return err
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		return newHTTPError(method, endpoint, resp)
	}
	return decode(endpoint, resp, out)
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out)
}

// Patch is Do with PATCH.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, endpoint, body, out)
}

// Put is Do with PUT.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPut, endpoint, body, out)
}

// Delete is Do with DELETE and no body.
func (c *Client) Delete(ctx context.Context, endpoint string) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) accessToken(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.AccessToken(ctx)
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, token string) (*response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.metrics.requests.WithLabelValues(method, "error").Inc()
		c.logger.Warn("API request failed",
			"method", method,
			"path", endpoint,
			"request_id", requestID,
			"error", err,
		)
		return nil, &ConnectivityError{Method: method, Path: endpoint, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		c.metrics.requests.WithLabelValues(method, "error").Inc()
		return nil, &ConnectivityError{Method: method, Path: endpoint, Err: err}
	}

	c.metrics.requests.WithLabelValues(method, strconv.Itoa(res.StatusCode)).Inc()
	c.logger.Debug("API request",
		"method", method,
		"path", endpoint,
		"status", res.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)
	return &response{status: res.StatusCode, body: data}, nil
}

// refresh exchanges the refresh token for a new access token. stale is the
// token that was rejected; if another caller already replaced it, the newer
// token is used without a second refresh.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.tokens.AccessToken(ctx); current != "" && current != stale {
		return current, nil
	}

	access, err := c.exchange(ctx)
	if err != nil {
		c.metrics.refreshes.WithLabelValues("failure").Inc()
		c.logger.Warn("Token refresh failed, clearing session", "error", err)
		if clearErr := c.tokens.Clear(ctx); clearErr != nil {
			c.logger.Error("Failed to clear tokens", "error", clearErr)
		}
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	c.metrics.refreshes.WithLabelValues("success").Inc()
	c.logger.Debug("Access token refreshed")
	return access, nil
}

func (c *Client) exchange(ctx context.Context) (string, error) {
	refreshToken := c.tokens.RefreshToken(ctx)
	if refreshToken == "" {
		return "", fmt.Errorf("no refresh token")
	}

	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", err
	}
	resp, err := c.send(ctx, http.MethodPost, RefreshPath, payload, "")
	if err != nil {
		return "", err
	}
	if resp.status < 200 || resp.status >= 300 {
		return "", newHTTPError(http.MethodPost, RefreshPath, resp)
	}

	var tokens models.AuthTokens
	if err := json.Unmarshal(resp.body, &tokens); err != nil {
		return "", &DecodeError{Path: RefreshPath, Err: err}
	}
	if tokens.Access == "" {
		return "", &DecodeError{Path: RefreshPath, Err: fmt.Errorf("missing access token")}
	}
	// SimpleJWT only rotates the refresh token when configured to.
	if tokens.Refresh == "" {
		tokens.Refresh = refreshToken
	}
	if err := c.tokens.SetTokens(ctx, tokens.Access, tokens.Refresh); err != nil {
		return "", fmt.Errorf("storing refreshed tokens: %w", err)
	}
	return tokens.Access, nil
}

func newHTTPError(method, endpoint string, resp *response) *HTTPError {
	body := map[string]any{}
	if len(bytes.TrimSpace(resp.body)) > 0 {
		var parsed map[string]any
		if err := json.Unmarshal(resp.body, &parsed); err == nil && parsed != nil {
			body = parsed
		}
	}
	return &HTTPError{
		Method:  method,
		Path:    endpoint,
		Status:  resp.status,
		Body:    body,
		Message: errorMessage(body, resp.status),
	}
}

func decode(endpoint string, resp *response, out any) error {
	if out == nil || resp.status == http.StatusNoContent || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &DecodeError{Path: endpoint, Err: err}
	}
	if v, ok := out.(models.Validator); ok {
		if err := v.Validate(); err != nil {
			return &DecodeError{Path: endpoint, Err: err}
		}
	}
	return nil
}
