package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type OrganizationStore struct {
	mu sync.RWMutex

	organizations map[uuid.UUID]*models.Organization // org_id -> Organization

	// profiles is consulted on Delete to emulate the foreign key from profiles.
	profiles *ProfileStore
}

// NewOrganizationStore creates a new in-memory organization store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{
		organizations: make(map[uuid.UUID]*models.Organization),
	}
}

// Create creates a new organization in memory.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[org.ID]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *org
	s.organizations[org.ID] = &clone

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

// Delete deletes an organization by ID.
// Deleting an organization that still has profiles returns store.ErrOrganizationReferenced.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[orgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	if s.profiles != nil {
		s.profiles.mu.RLock()
		defer s.profiles.mu.RUnlock()

		if s.profiles.countByOrganization(orgID) > 0 {
			return store.ErrOrganizationReferenced
		}
	}

	delete(s.organizations, orgID)

	return nil
}

// ListBySlug returns all organizations sharing a slug, oldest first.
func (s *OrganizationStore) ListBySlug(ctx context.Context, slug string) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Organization
	for _, org := range s.organizations {
		if org.Slug == slug {
			clone := *org
			result = append(result, &clone)
		}
	}

	slices.SortFunc(result, func(a, b *models.Organization) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return result, nil
}
