package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
)

func newTestOrganization(t *testing.T, name, slug string, createdAt time.Time) *models.Organization {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	return &models.Organization{
		ID:        id,
		Name:      name,
		Slug:      slug,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func newTestProfile(t *testing.T, orgID uuid.UUID, createdAt time.Time) *models.Profile {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	return &models.Profile{
		ID:             id,
		Email:          "clerk@springfield.gov",
		FullName:       "J Clerk",
		OrganizationID: orgID,
		Role:           models.RoleAdmin,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestOrganizationStore_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	org := newTestOrganization(t, "Springfield", "springfield", time.Now())
	require.NoError(t, stores.Organizations.Create(ctx, org))

	err := stores.Organizations.Create(ctx, org)
	require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)

	got, err := stores.Organizations.Get(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, "Springfield", got.Name)
	require.Equal(t, "springfield", got.Slug)

	// Mutating the returned copy must not leak into the store
	got.Name = "changed"
	again, err := stores.Organizations.Get(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, "Springfield", again.Name)

	require.NoError(t, stores.Organizations.Delete(ctx, org.ID))

	_, err = stores.Organizations.Get(ctx, org.ID)
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)

	err = stores.Organizations.Delete(ctx, org.ID)
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)
}

func TestOrganizationStore_ListBySlug(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	now := time.Now()

	newer := newTestOrganization(t, "Springfield!", "springfield", now)
	older := newTestOrganization(t, "Springfield", "springfield", now.Add(-time.Hour))
	other := newTestOrganization(t, "Shelbyville", "shelbyville", now)

	for _, org := range []*models.Organization{newer, older, other} {
		require.NoError(t, stores.Organizations.Create(ctx, org))
	}

	orgs, err := stores.Organizations.ListBySlug(ctx, "springfield")
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	require.Equal(t, older.ID, orgs[0].ID)
	require.Equal(t, newer.ID, orgs[1].ID)
}

func TestOrganizationStore_DeleteReferenced(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	org := newTestOrganization(t, "Springfield", "springfield", time.Now())
	require.NoError(t, stores.Organizations.Create(ctx, org))
	require.NoError(t, stores.Profiles.Create(ctx, newTestProfile(t, org.ID, time.Now())))

	err := stores.Organizations.Delete(ctx, org.ID)
	require.ErrorIs(t, err, store.ErrOrganizationReferenced)
}

func TestProfileStore_Create(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	org := newTestOrganization(t, "Springfield", "springfield", time.Now())
	require.NoError(t, stores.Organizations.Create(ctx, org))

	profile := newTestProfile(t, org.ID, time.Now())
	require.NoError(t, stores.Profiles.Create(ctx, profile))

	err := stores.Profiles.Create(ctx, profile)
	require.ErrorIs(t, err, store.ErrProfileAlreadyExists)

	got, err := stores.Profiles.Get(ctx, profile.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, got.Role)
	require.True(t, got.IsAdmin())
	require.Equal(t, org.ID, got.OrganizationID)
}

func TestProfileStore_CreateUnknownOrganization(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	err := stores.Profiles.Create(ctx, newTestProfile(t, uuid.New(), time.Now()))
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)
}

func TestProfileStore_Unlinked(t *testing.T) {
	// A standalone profile store does not check organizations
	ctx := context.Background()
	profiles := NewProfileStore(nil)

	require.NoError(t, profiles.Create(ctx, newTestProfile(t, uuid.New(), time.Now())))
}

func TestProfileStore_ListByOrganization(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	now := time.Now()

	org := newTestOrganization(t, "Springfield", "springfield", now)
	require.NoError(t, stores.Organizations.Create(ctx, org))

	second := newTestProfile(t, org.ID, now)
	first := newTestProfile(t, org.ID, now.Add(-time.Minute))
	require.NoError(t, stores.Profiles.Create(ctx, second))
	require.NoError(t, stores.Profiles.Create(ctx, first))

	profiles, err := stores.Profiles.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, first.ID, profiles[0].ID)

	_, err = stores.Profiles.Get(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrProfileNotFound)
}

func TestAuditLogStore_Append(t *testing.T) {
	ctx := context.Background()
	logs := NewAuditLogStore()

	userID := uuid.New()
	ip := "203.0.113.7"
	for i := range 2 {
		id, err := uuid.NewV7()
		require.NoError(t, err)

		entry := &models.AuditLogEntry{
			ID:          id,
			UserID:      userID,
			Action:      models.AuditActionSignup,
			Table:       models.AuditTableAuth,
			RecordID:    userID,
			Description: "entry",
			CreatedAt:   time.Now(),
		}
		if i == 0 {
			entry.IPAddress = &ip
		}
		require.NoError(t, logs.Append(ctx, entry))

		err = logs.Append(ctx, entry)
		require.ErrorIs(t, err, store.ErrAuditLogAlreadyExists)
	}

	entries, err := logs.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, &ip, entries[0].IPAddress)
	require.Nil(t, entries[1].IPAddress)

	entries, err = logs.ListByUser(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProfileStore_InvalidRole(t *testing.T) {
	ctx := context.Background()
	profiles := NewProfileStore(nil)

	member := newTestProfile(t, uuid.New(), time.Now())
	member.Role = models.RoleMember
	require.NoError(t, profiles.Create(ctx, member))

	owner := newTestProfile(t, uuid.New(), time.Now())
	owner.Role = "owner"
	require.EqualError(t, profiles.Create(ctx, owner), `invalid profile role "owner"`)
}

func TestStores_ReturnDeepCopies(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	org := newTestOrganization(t, "Springfield", "springfield", time.Now())
	require.NoError(t, stores.Organizations.Create(ctx, org))

	dept := "Parks"
	profile := newTestProfile(t, org.ID, time.Now())
	profile.Department = &dept
	require.NoError(t, stores.Profiles.Create(ctx, profile))

	// the caller's value is copied on write
	dept = "Roads"

	got, err := stores.Profiles.Get(ctx, profile.ID)
	require.NoError(t, err)
	require.Equal(t, "Parks", *got.Department)

	*got.Department = "Libraries"
	listed, err := stores.Profiles.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, "Parks", *listed[0].Department)

	ip := "203.0.113.7"
	userID := uuid.New()
	require.NoError(t, stores.AuditLogs.Append(ctx, &models.AuditLogEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    models.AuditActionSignup,
		Table:     models.AuditTableAuth,
		RecordID:  userID,
		IPAddress: &ip,
		CreatedAt: time.Now(),
	}))
	ip = "198.51.100.1"

	entries, err := stores.AuditLogs.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "203.0.113.7", *entries[0].IPAddress)

	*entries[0].IPAddress = "192.0.2.1"
	entries, err = stores.AuditLogs.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "203.0.113.7", *entries[0].IPAddress)
}

func TestStores_ConcurrentDeleteAndCreateKeepReferences(t *testing.T) {
	ctx := context.Background()

	for range 50 {
		stores := NewStores()

		org := newTestOrganization(t, "Springfield", "springfield", time.Now())
		require.NoError(t, stores.Organizations.Create(ctx, org))
		profile := newTestProfile(t, org.ID, time.Now())

		var (
			wg        sync.WaitGroup
			deleteErr error
			createErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			deleteErr = stores.Organizations.Delete(ctx, org.ID)
		}()
		go func() {
			defer wg.Done()
			createErr = stores.Profiles.Create(ctx, profile)
		}()
		wg.Wait()

		profiles, err := stores.Profiles.ListByOrganization(ctx, org.ID)
		require.NoError(t, err)

		if deleteErr == nil {
			// organization gone, so the profile must have been refused
			require.ErrorIs(t, createErr, store.ErrOrganizationNotFound)
			require.Empty(t, profiles)
			continue
		}

		require.ErrorIs(t, deleteErr, store.ErrOrganizationReferenced)
		require.NoError(t, createErr)
		require.Len(t, profiles, 1)
	}
}
