package auth

import (
	"context"

	"github.com/mmynk/travelboard/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The stub backend uses it to register and log in users; it does not care
// whether credentials are passwords or something else.
type Authenticator interface {
	// Register creates a new account. The credential format depends on the
	// implementation. Returns the created user or an error.
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)

	// Authenticate verifies credentials and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
