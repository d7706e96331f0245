package store

import (
	"errors"
)

// Stores bundles the record collections touched by account provisioning.
type Stores struct {
	Organizations OrganizationStore
	Profiles      ProfileStore
	AuditLogs     AuditLogStore
}

// Validate checks that every collection is configured.
func (s Stores) Validate() error {
	if s.Organizations == nil || s.Profiles == nil || s.AuditLogs == nil {
		return errors.New("all stores (organizations, profiles, audit logs) are required")
	}
	return nil
}
