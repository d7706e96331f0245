package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
	"github.com/wolfeidau/townhall/internal/store/migration"
)

func openTestStores(t *testing.T) store.Stores {
	t.Helper()

	stores, closeDB, err := Open(t.Context(), filepath.Join(t.TempDir(), "townhall.db"))
	require.NoError(t, err)
	t.Cleanup(closeDB)
	require.NoError(t, stores.Validate())
	return stores
}

func testOrg(slug string, createdAt time.Time) *models.Organization {
	return &models.Organization{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      "Springfield City",
		Slug:      slug,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func testProfile(id, orgID uuid.UUID) *models.Profile {
	now := time.Now().UTC()
	return &models.Profile{
		ID:             id,
		Email:          "a@b.gov",
		FullName:       "Ann Lee",
		OrganizationID: orgID,
		Role:           models.RoleAdmin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, _, err := Open(t.Context(), "  ")
	require.EqualError(t, err, "storage path is required")
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "townhall.db")

	for range 2 {
		_, closeDB, err := Open(t.Context(), path)
		require.NoError(t, err)
		closeDB()
	}
}

func TestOrganizationStore(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first := testOrg("springfield-city", base)
	second := testOrg("springfield-city", base.Add(time.Minute))

	require.NoError(t, stores.Organizations.Create(ctx, second))
	require.NoError(t, stores.Organizations.Create(ctx, first))
	require.ErrorIs(t, stores.Organizations.Create(ctx, first), store.ErrOrganizationAlreadyExists)

	got, err := stores.Organizations.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, first.Name, got.Name)
	require.True(t, first.CreatedAt.Equal(got.CreatedAt))

	orgs, err := stores.Organizations.ListBySlug(ctx, "springfield-city")
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	require.Equal(t, first.ID, orgs[0].ID)
	require.Equal(t, second.ID, orgs[1].ID)

	require.NoError(t, stores.Organizations.Delete(ctx, second.ID))
	require.ErrorIs(t, stores.Organizations.Delete(ctx, second.ID), store.ErrOrganizationNotFound)

	_, err = stores.Organizations.Get(ctx, second.ID)
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)
}

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	org := testOrg("springfield-city", time.Now().UTC())
	require.NoError(t, stores.Organizations.Create(ctx, org))

	userID := uuid.Must(uuid.NewV7())

	t.Run("unknown organization", func(t *testing.T) {
		err := stores.Profiles.Create(ctx, testProfile(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())))
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("create and get", func(t *testing.T) {
		p := testProfile(userID, org.ID)
		dept := "Parks"
		p.Department = &dept

		require.NoError(t, stores.Profiles.Create(ctx, p))
		require.ErrorIs(t, stores.Profiles.Create(ctx, p), store.ErrProfileAlreadyExists)

		got, err := stores.Profiles.Get(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, org.ID, got.OrganizationID)
		require.NotNil(t, got.Department)
		require.Equal(t, "Parks", *got.Department)
		require.True(t, got.IsAdmin())
	})

	t.Run("null department", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())
		require.NoError(t, stores.Profiles.Create(ctx, testProfile(id, org.ID)))

		got, err := stores.Profiles.Get(ctx, id)
		require.NoError(t, err)
		require.Nil(t, got.Department)
	})

	t.Run("list by organization", func(t *testing.T) {
		profiles, err := stores.Profiles.ListByOrganization(ctx, org.ID)
		require.NoError(t, err)
		require.Len(t, profiles, 2)
	})

	t.Run("referenced organization cannot be deleted", func(t *testing.T) {
		err := stores.Organizations.Delete(ctx, org.ID)
		require.ErrorIs(t, err, store.ErrOrganizationReferenced)
	})

	t.Run("missing profile", func(t *testing.T) {
		_, err := stores.Profiles.Get(ctx, uuid.Must(uuid.NewV7()))
		require.ErrorIs(t, err, store.ErrProfileNotFound)
	})
}

func TestAuditLogStore(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	userID := uuid.Must(uuid.NewV7())
	ip := "198.51.100.7"
	base := time.Now().UTC()

	withIP := &models.AuditLogEntry{
		ID:          uuid.Must(uuid.NewV7()),
		UserID:      userID,
		Action:      models.AuditActionSignup,
		Table:       models.AuditTableAuth,
		RecordID:    userID,
		Description: "User signed up with email a@b.gov",
		IPAddress:   &ip,
		CreatedAt:   base,
	}
	withoutIP := &models.AuditLogEntry{
		ID:          uuid.Must(uuid.NewV7()),
		UserID:      userID,
		Action:      models.AuditActionSignup,
		Table:       models.AuditTableAuth,
		RecordID:    userID,
		Description: "User signed up with email a@b.gov",
		CreatedAt:   base.Add(time.Second),
	}

	require.NoError(t, stores.AuditLogs.Append(ctx, withIP))
	require.NoError(t, stores.AuditLogs.Append(ctx, withoutIP))
	require.ErrorIs(t, stores.AuditLogs.Append(ctx, withIP), store.ErrAuditLogAlreadyExists)

	entries, err := stores.AuditLogs.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, withIP.ID, entries[0].ID)
	require.Equal(t, ip, *entries[0].IPAddress)
	require.Nil(t, entries[1].IPAddress)
	require.Equal(t, models.AuditActionSignup, entries[1].Action)

	entries, err = stores.AuditLogs.ListByUser(ctx, uuid.Must(uuid.NewV7()))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := migration.Load(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "001_initial_schema.sql", files[0].Name)
	require.NotContains(t, files[0].SQL, "-- +migrate")
	require.Contains(t, files[0].SQL, "CREATE TABLE IF NOT EXISTS organizations")
}

func TestClosedDatabaseErrors(t *testing.T) {
	ctx := context.Background()
	stores, closeDB, err := Open(ctx, filepath.Join(t.TempDir(), "townhall.db"))
	require.NoError(t, err)
	closeDB()

	_, err = stores.Organizations.Get(ctx, uuid.New())
	require.ErrorContains(t, err, "failed to get organization: ")

	_, err = stores.Profiles.ListByOrganization(ctx, uuid.New())
	require.ErrorContains(t, err, "failed to list profiles: ")

	_, err = stores.AuditLogs.ListByUser(ctx, uuid.New())
	require.ErrorContains(t, err, "failed to list audit log entries: ")
}
