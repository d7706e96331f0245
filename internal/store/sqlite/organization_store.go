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

// OrganizationStore implements store.OrganizationStore over SQLite.
type OrganizationStore struct {
	db *sql.DB
}

// Create inserts a new organization. A duplicate ID returns
// store.ErrOrganizationAlreadyExists.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO organizations (id, name, slug, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Slug, toMillis(org.CreatedAt), toMillis(org.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, slug, created_at, updated_at
FROM organizations
WHERE id = ?`, orgID)

	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// Delete removes an organization. It returns store.ErrOrganizationReferenced
// while profiles still point at it.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = ?`, orgID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationReferenced
		}
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrOrganizationNotFound
	}
	return nil
}

// ListBySlug returns all organizations sharing a slug, oldest first.
func (s *OrganizationStore) ListBySlug(ctx context.Context, slug string) ([]*models.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, slug, created_at, updated_at
FROM organizations
WHERE slug = ?
ORDER BY created_at ASC, id ASC`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var (
		org       models.Organization
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&org.ID, &org.Name, &org.Slug, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	org.CreatedAt = fromMillis(createdAt)
	org.UpdatedAt = fromMillis(updatedAt)
	return &org, nil
}

var _ store.OrganizationStore = (*OrganizationStore)(nil)
