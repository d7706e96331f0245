package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions and tables.
const (
	AuditActionSignup = "signup"
	AuditTableAuth    = "auth"
)

// AuditLogEntry is an append-only record of a security relevant event.
type AuditLogEntry struct {
	ID          uuid.UUID // UUIDv7
	UserID      uuid.UUID
	Action      string
	Table       string
	RecordID    uuid.UUID
	Description string
	IPAddress   *string // Optional, captured from the request
	CreatedAt   time.Time
}
