package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile roles.
const (
	RoleAdmin  = "admin"  // First profile created for an organization
	RoleMember = "member" // Invited members (not created by signup)
)

// Profile is the application-side record for a user identity.
// A profile always belongs to exactly one organization.
type Profile struct {
	ID             uuid.UUID // Same as the identity provider's user ID
	Email          string
	FullName       string
	Department     *string // Optional
	OrganizationID uuid.UUID
	Role           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin returns true if the profile holds the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ValidRole reports whether role is one a profile may hold.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleMember:
		return true
	}
	return false
}
