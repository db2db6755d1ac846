package apiclient

import (
	"context"
	"fmt"

	"github.com/mmynk/travelboard/internal/models"
)

// Register creates an account and stores the issued tokens.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.Post(ctx, "/api/auth/register/", req, &resp); err != nil {
		return nil, err
	}
	if err := c.storeTokens(ctx, resp.Tokens); err != nil {
		return nil, err
	}
	c.logger.Info("Registered", "user_id", resp.User.ID, "email", resp.User.Email)
	return &resp, nil
}

// Login authenticates with email and password and stores the issued tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.Post(ctx, "/api/auth/login/", models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.storeTokens(ctx, resp.Tokens); err != nil {
		return nil, err
	}
	c.logger.Info("Logged in", "user_id", resp.User.ID)
	return &resp, nil
}

// Logout blacklists the refresh token when one is stored and clears the
// local tokens. The server call failing does not keep the session alive.
func (c *Client) Logout(ctx context.Context) error {
	if c.tokens == nil {
		return nil
	}
	if refresh := c.tokens.RefreshToken(ctx); refresh != "" && c.HasToken(ctx) {
		if err := c.Post(ctx, "/api/auth/logout/", map[string]string{"refresh": refresh}, nil); err != nil {
			c.logger.Warn("Server logout failed", "error", err)
		}
	}
	return c.tokens.Clear(ctx)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	if !c.HasToken(ctx) {
		return nil, ErrAuthRequired
	}
	var env models.UserEnvelope
	if err := c.Get(ctx, "/api/auth/me/", &env); err != nil {
		return nil, err
	}
	return &env.User, nil
}

// UpdateProfile changes profile fields of the authenticated user.
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileInput) (*models.User, error) {
	if !c.HasToken(ctx) {
		return nil, ErrAuthRequired
	}
	var env models.UserEnvelope
	if err := c.Put(ctx, "/api/auth/me/", in, &env); err != nil {
		return nil, err
	}
	return &env.User, nil
}

// HealthStatus is the body of /api/health/.
type HealthStatus struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Authenticated bool   `json:"authenticated"`
}

// Health checks that the API is up.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var h HealthStatus
	if err := c.Get(ctx, "/api/health/", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) storeTokens(ctx context.Context, t models.AuthTokens) error {
	if c.tokens == nil {
		return nil
	}
	if err := c.tokens.SetTokens(ctx, t.Access, t.Refresh); err != nil {
		return fmt.Errorf("storing tokens: %w", err)
	}
	return nil
}
