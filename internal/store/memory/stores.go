package memory

import "github.com/wolfeidau/townhall/internal/store"

// NewStores creates a linked set of in-memory stores in which profiles
// reference organizations the way the SQL schemas do.
func NewStores() store.Stores {
	orgs := NewOrganizationStore()
	profiles := NewProfileStore(orgs)
	orgs.profiles = profiles

	return store.Stores{
		Organizations: orgs,
		Profiles:      profiles,
		AuditLogs:     NewAuditLogStore(),
	}
}
