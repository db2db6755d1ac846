package stubapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mmynk/travelboard/internal/auth"
	"github.com/mmynk/travelboard/internal/middleware"
	"github.com/mmynk/travelboard/internal/models"
)

func (s *Server) issue(w http.ResponseWriter, status int, message string, user models.User) {
	access, refresh, err := s.jwt.Generate(user.ID)
	if err != nil {
		s.logger.Error("Failed to generate tokens", "user_id", user.ID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, status, models.AuthResponse{
		Message: message,
		User:    user,
		Tokens:  models.AuthTokens{Access: access, Refresh: refresh},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fe := fieldErrors{}
	if strings.TrimSpace(req.Username) == "" {
		fe.add("username", msgRequired)
	}
	if strings.TrimSpace(req.Email) == "" {
		fe.add("email", msgRequired)
	}
	if req.Password == "" {
		fe.add("password", msgRequired)
	}
	if len(fe) > 0 {
		writeError(w, fe)
		return
	}

	user, err := s.authn.Register(r.Context(), req)
	switch {
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, fieldErrors{"password": {"This password is too short. It must contain at least 8 characters."}})
		return
	case errors.Is(err, auth.ErrPasswordMismatch):
		writeError(w, fieldErrors{"password": {"Password fields didn't match."}})
		return
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, fieldErrors{"email": {"user with this email already exists."}})
		return
	case err != nil:
		s.logger.Error("Register failed", "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("User registered", "user_id", user.ID)
	s.issue(w, http.StatusCreated, "User registered successfully", *user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid credentials"}})
		return
	}
	s.issue(w, http.StatusOK, "Login successful", *user)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// validRefresh checks a refresh token's signature, type and revocation.
func (s *Server) validRefresh(token string) (*auth.Claims, bool) {
	claims, err := s.jwt.Validate(token, auth.RefreshToken)
	if err != nil || s.store.isRevoked(claims.ID) {
		return nil, false
	}
	return claims, true
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		writeError(w, fieldErrors{"refresh": {msgRequired}})
		return
	}
	claims, ok := s.validRefresh(req.Refresh)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": msgTokenValid,
			"code":   "token_not_valid",
		})
		return
	}
	access, err := s.jwt.Access(claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Refresh token is required"})
		return
	}
	claims, ok := s.validRefresh(req.Refresh)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid token"})
		return
	}
	s.store.revoke(claims.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.user(middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.UserEnvelope{User: user})
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileInput
	if !decodeBody(w, r, &in) {
		return
	}
	user, err := s.store.updateUser(middleware.GetUserID(r.Context()), in)
	if errors.Is(err, auth.ErrEmailExists) {
		writeError(w, fieldErrors{"email": {"user with this email already exists."}})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.UserEnvelope{User: user})
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req models.InviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email is required"})
		return
	}
	s.logger.Info("Invitation sent", "user_id", middleware.GetUserID(r.Context()), "email", req.Email)
	writeJSON(w, http.StatusOK, models.InviteResponse{Message: "Invitation sent successfully"})
}
