package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
)

var ErrAuditLogAlreadyExists = errors.New("audit log entry already exists")

// AuditLogStore is an append-only log of security relevant events.
type AuditLogStore interface {
	// Append writes a new entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry *models.AuditLogEntry) error

	// ListByUser returns the entries for a user, oldest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.AuditLogEntry, error)
}
