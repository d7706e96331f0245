package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents an organization (tenant) in the system.
// Each organization groups the profiles of one municipal body.
type Organization struct {
	ID        uuid.UUID // UUIDv7
	Name      string
	Slug      string // URL-safe form of Name, not unique
	CreatedAt time.Time
	UpdatedAt time.Time
}
