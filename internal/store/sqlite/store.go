package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/store"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// pragmas are applied to every pooled connection by the driver.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Open opens a SQLite database file, applies the embedded migrations and
// returns the provisioning stores backed by it. The returned close function
// releases the database handle.
func Open(ctx context.Context, path string) (store.Stores, func(), error) {
	if strings.TrimSpace(path) == "" {
		return store.Stores{}, nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?" + pragmas
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return store.Stores{}, nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return store.Stores{}, nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if err := Migrate(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return store.Stores{}, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened SQLite database")

	return store.Stores{
			Organizations: &OrganizationStore{db: sqlDB},
			Profiles:      &ProfileStore{db: sqlDB},
			AuditLogs:     &AuditLogStore{db: sqlDB},
		}, func() {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close SQLite database")
			}
		}, nil
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0, false
	}
	return sqliteErr.Code(), true
}

func isUniqueViolation(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	return code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyViolation(err error) bool {
	code, ok := sqliteCode(err)
	if ok && code == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
