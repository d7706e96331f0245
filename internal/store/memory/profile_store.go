package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
)

// ProfileStore implements store.ProfileStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type ProfileStore struct {
	mu sync.RWMutex

	profiles map[uuid.UUID]*models.Profile // profile_id -> Profile

	// organizations is consulted on Create to emulate the foreign key to organizations.
	organizations *OrganizationStore
}

// NewProfileStore creates a new in-memory profile store.
// When orgs is non-nil, profiles must reference an existing organization.
func NewProfileStore(orgs *OrganizationStore) *ProfileStore {
	return &ProfileStore{
		profiles:      make(map[uuid.UUID]*models.Profile),
		organizations: orgs,
	}
}

// Create creates a new profile in memory.
// Locks are taken organizations first, then profiles.
func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	if !models.ValidRole(profile.Role) {
		return fmt.Errorf("invalid profile role %q", profile.Role)
	}

	if s.organizations != nil {
		s.organizations.mu.RLock()
		defer s.organizations.mu.RUnlock()

		if _, ok := s.organizations.organizations[profile.OrganizationID]; !ok {
			return store.ErrOrganizationNotFound
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.ID]; exists {
		return store.ErrProfileAlreadyExists
	}

	s.profiles[profile.ID] = cloneProfile(profile)

	return nil
}

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[profileID]
	if !exists {
		return nil, store.ErrProfileNotFound
	}

	return cloneProfile(profile), nil
}

// ListByOrganization returns all profiles of an organization, oldest first.
func (s *ProfileStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Profile
	for _, p := range s.profiles {
		if p.OrganizationID != orgID {
			continue
		}

		result = append(result, cloneProfile(p))
	}

	slices.SortFunc(result, func(a, b *models.Profile) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return result, nil
}

// countByOrganization must be called with s.mu held.
func (s *ProfileStore) countByOrganization(orgID uuid.UUID) int {
	count := 0
	for _, p := range s.profiles {
		if p.OrganizationID == orgID {
			count++
		}
	}
	return count
}

func cloneProfile(p *models.Profile) *models.Profile {
	clone := *p
	if p.Department != nil {
		dept := *p.Department
		clone.Department = &dept
	}
	return &clone
}
