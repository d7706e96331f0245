package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
)

// ProfileStore implements store.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a new PostgreSQL-backed profile store.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{
		pool: pool,
	}
}

// Create creates a new profile in the database.
func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (
			id, email, full_name, department,
			organization_id, role, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := s.pool.Exec(ctx, query,
		profile.ID,
		profile.Email,
		profile.FullName,
		profile.Department,
		profile.OrganizationID,
		profile.Role,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	if err != nil {
		switch {
		case isUniqueViolation(err):
			return store.ErrProfileAlreadyExists
		case isForeignKeyViolation(err):
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create profile: %w", describePostgresError(err))
	}

	log.Debug().
		Str("profile_id", profile.ID.String()).
		Str("org_id", profile.OrganizationID.String()).
		Str("role", profile.Role).
		Msg("Created profile")

	return nil
}

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT
			id, email, full_name, department,
			organization_id, role, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p models.Profile
	err := s.pool.QueryRow(ctx, query, profileID).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Department,
		&p.OrganizationID,
		&p.Role,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", describePostgresError(err))
	}

	return &p, nil
}

// ListByOrganization returns all profiles of an organization, oldest first.
func (s *ProfileStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Profile, error) {
	query := `
		SELECT
			id, email, full_name, department,
			organization_id, role, created_at, updated_at
		FROM profiles
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", describePostgresError(err))
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		var p models.Profile
		err := rows.Scan(
			&p.ID,
			&p.Email,
			&p.FullName,
			&p.Department,
			&p.OrganizationID,
			&p.Role,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}
