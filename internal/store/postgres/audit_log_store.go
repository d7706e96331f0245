package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
)

// AuditLogStore implements store.AuditLogStore using PostgreSQL.
type AuditLogStore struct {
	pool *pgxpool.Pool
}

// NewAuditLogStore creates a new PostgreSQL-backed audit log store.
func NewAuditLogStore(pool *pgxpool.Pool) *AuditLogStore {
	return &AuditLogStore{
		pool: pool,
	}
}

// Append inserts a new audit log entry.
func (s *AuditLogStore) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (
			id, user_id, action, table_name, record_id,
			description, ip_address, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7::inet, $8
		)
	`

	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.Table,
		entry.RecordID,
		entry.Description,
		entry.IPAddress,
		entry.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAuditLogAlreadyExists
		}
		return fmt.Errorf("failed to append audit log entry: %w", describePostgresError(err))
	}

	return nil
}

// ListByUser returns the entries for a user, oldest first.
func (s *AuditLogStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT
			id, user_id, action, table_name, record_id,
			description, host(ip_address), created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", describePostgresError(err))
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Action,
			&e.Table,
			&e.RecordID,
			&e.Description,
			&e.IPAddress,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log entries: %w", err)
	}

	return entries, nil
}
