package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
)

// Sentinel errors returned by providers. The messages are shown to users as-is.
var (
	ErrUserAlreadyRegistered = errors.New("User already registered")
	ErrUserNotFound          = errors.New("User not found")
)

// SignUpRequest carries the credentials and metadata for a new identity.
type SignUpRequest struct {
	Email    string
	Password string
	Metadata models.UserMetadata
}

// Provider is an external identity provider that owns credentials and email
// confirmation.
type Provider interface {
	// SignUp registers a new identity. A nil user with a nil error means the
	// provider accepted the request without returning an identity.
	SignUp(ctx context.Context, req SignUpRequest) (*models.User, error)

	// DeleteUser removes an identity with administrative privileges.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}
