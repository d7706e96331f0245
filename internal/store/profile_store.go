package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
)

// Sentinel errors for profile store operations
var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrProfileAlreadyExists = errors.New("profile already exists")
)

// ProfileStore manages the application profile attached to each user identity.
type ProfileStore interface {
	// Create creates a new profile.
	// Returns ErrProfileAlreadyExists if a profile with the same ID already exists and
	// ErrOrganizationNotFound if the referenced organization doesn't exist.
	Create(ctx context.Context, profile *models.Profile) error

	// Get retrieves a profile by user ID.
	// Returns ErrProfileNotFound if the profile doesn't exist.
	Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)

	// ListByOrganization returns all profiles of an organization, oldest first.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Profile, error)
}
