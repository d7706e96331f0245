package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
	ErrOrganizationReferenced    = errors.New("organization is referenced by profiles")
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations represent tenants in the system, with each org containing multiple profiles.
type OrganizationStore interface {
	// Create creates a new organization in the store.
	// Returns ErrOrganizationAlreadyExists if an organization with the same ID already exists.
	// Slugs are not required to be unique.
	Create(ctx context.Context, org *models.Organization) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// Delete deletes an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist and
	// ErrOrganizationReferenced if a profile still points at it.
	Delete(ctx context.Context, orgID uuid.UUID) error

	// ListBySlug returns all organizations sharing a slug, oldest first.
	ListBySlug(ctx context.Context, slug string) ([]*models.Organization, error)
}
