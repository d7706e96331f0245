package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/store/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies each embedded migration at most once, tracking applied
// files by name in schema_migrations.
func Migrate(ctx context.Context, sqlDB *sql.DB) error {
	if sqlDB == nil {
		return fmt.Errorf("sql db is required")
	}

	files, err := migration.Load(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	if _, err := sqlDB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`); err != nil {
		return fmt.Errorf("failed to ensure migration table: %w", err)
	}

	for _, f := range files {
		var count int
		if err := sqlDB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM schema_migrations WHERE name = ?", f.Name,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", f.Name, err)
		}
		if count > 0 {
			log.Debug().Str("migration", f.Name).Msg("Migration already applied, skipping")
			continue
		}

		if strings.TrimSpace(f.SQL) == "" {
			continue
		}

		tx, err := sqlDB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction %s: %w", f.Name, err)
		}

		if _, err := tx.ExecContext(ctx, f.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to exec migration %s: %w", f.Name, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO schema_migrations (name, applied_at) VALUES (?, ?)",
			f.Name, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", f.Name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", f.Name, err)
		}

		log.Info().Str("migration", f.Name).Msg("Applied migration")
	}

	return nil
}
