package models

import (
	"errors"
	"strings"
	"time"
)

// User represents a registered account as returned by /api/auth/me/.
type User struct {
	// ID is the server-assigned numeric identifier.
	ID int64 `json:"id"`

	// Username is the unique login handle.
	Username string `json:"username"`

	// Email is the user's email address (unique, used for login and invites).
	Email string `json:"email"`

	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Validate rejects users without an identity.
func (u *User) Validate() error {
	if u.ID <= 0 {
		return errors.New("user: missing id")
	}
	return nil
}

// AuthTokens is the access/refresh pair issued on login and registration.
type AuthTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResponse is the body returned by the login and register endpoints.
type AuthResponse struct {
	Message string     `json:"message"`
	User    User       `json:"user"`
	Tokens  AuthTokens `json:"tokens"`
}

// Validate requires both tokens to be present.
func (r *AuthResponse) Validate() error {
	if r.Tokens.Access == "" || r.Tokens.Refresh == "" {
		return errors.New("auth response: missing tokens")
	}
	return nil
}

// UserEnvelope wraps the user returned by /api/auth/me/.
type UserEnvelope struct {
	User User `json:"user"`
}

// RegisterRequest is the payload for /api/auth/register/.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// LoginRequest is the payload for /api/auth/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput carries profile fields for PUT /api/auth/me/.
type ProfileInput struct {
	Username  *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// InviteRequest is the payload for /api/auth/invite/.
type InviteRequest struct {
	Email string `json:"email"`
}

// InviteResponse is the body returned by /api/auth/invite/.
type InviteResponse struct {
	Message string `json:"message"`
}
