package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
)

// AuditLogStore implements store.AuditLogStore over SQLite.
type AuditLogStore struct {
	db *sql.DB
}

// Append inserts a new entry. A duplicate ID returns store.ErrAuditLogAlreadyExists.
func (s *AuditLogStore) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_logs (
    id, user_id, action, table_name, record_id, description, ip_address, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.Table,
		entry.RecordID,
		entry.Description,
		nullString(entry.IPAddress),
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAuditLogAlreadyExists
		}
		return fmt.Errorf("failed to append audit log entry: %w", err)
	}
	return nil
}

// ListByUser returns the entries for a user in insertion order.
func (s *AuditLogStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.AuditLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, action, table_name, record_id, description, ip_address, created_at
FROM audit_logs
WHERE user_id = ?
ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var (
			e         models.AuditLogEntry
			ip        sql.NullString
			createdAt int64
		)
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Action,
			&e.Table,
			&e.RecordID,
			&e.Description,
			&ip,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		e.IPAddress = stringPtr(ip)
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	return entries, nil
}

var _ store.AuditLogStore = (*AuditLogStore)(nil)
