package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
)

// ProfileStore implements store.ProfileStore over SQLite.
type ProfileStore struct {
	db *sql.DB
}

// Create inserts a new profile. The organization must exist.
func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO profiles (
    id, email, full_name, department, organization_id, role, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.Email,
		profile.FullName,
		nullString(profile.Department),
		profile.OrganizationID,
		profile.Role,
		toMillis(profile.CreatedAt),
		toMillis(profile.UpdatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return store.ErrProfileAlreadyExists
		case isForeignKeyViolation(err):
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, email, full_name, department, organization_id, role, created_at, updated_at
FROM profiles
WHERE id = ?`, profileID)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListByOrganization returns all profiles of an organization, oldest first.
func (s *ProfileStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, email, full_name, department, organization_id, role, created_at, updated_at
FROM profiles
WHERE organization_id = ?
ORDER BY created_at ASC, id ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p          models.Profile
		department sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&department,
		&p.OrganizationID,
		&p.Role,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	p.Department = stringPtr(department)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

var _ store.ProfileStore = (*ProfileStore)(nil)
