package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
)

// AuditLogStore implements store.AuditLogStore using an in-memory slice.
type AuditLogStore struct {
	mu sync.RWMutex

	entries []*models.AuditLogEntry // append order
	ids     map[uuid.UUID]struct{}
}

// NewAuditLogStore creates a new in-memory audit log store.
func NewAuditLogStore() *AuditLogStore {
	return &AuditLogStore{
		ids: make(map[uuid.UUID]struct{}),
	}
}

// Append writes a new entry.
func (s *AuditLogStore) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[entry.ID]; exists {
		return store.ErrAuditLogAlreadyExists
	}

	s.entries = append(s.entries, cloneAuditLogEntry(entry))
	s.ids[entry.ID] = struct{}{}

	return nil
}

// ListByUser returns the entries for a user in append order.
func (s *AuditLogStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.AuditLogEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			result = append(result, cloneAuditLogEntry(e))
		}
	}

	return result, nil
}

func cloneAuditLogEntry(e *models.AuditLogEntry) *models.AuditLogEntry {
	clone := *e
	if e.IPAddress != nil {
		ip := *e.IPAddress
		clone.IPAddress = &ip
	}
	return &clone
}
