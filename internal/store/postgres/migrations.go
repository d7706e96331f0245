package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/store/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate executes all pending database migrations in order.
// Migrations are tracked by version in the schema_migrations table, which the
// first migration creates.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations")

	files, err := migration.Load(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	log.Info().Int("count", len(files)).Msg("Found migration files")

	for _, f := range files {
		if err := applyMigration(ctx, pool, f); err != nil {
			return fmt.Errorf("migration %s failed: %w", f.Name, err)
		}
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, f migration.File) error {
	applied, err := migrationApplied(ctx, pool, f.Version)
	if err != nil {
		return err
	}
	if applied {
		log.Debug().Int("version", f.Version).Str("name", f.Name).Msg("Migration already applied, skipping")
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	log.Info().Int("version", f.Version).Str("name", f.Name).Msg("Applying migration")
	if _, err := tx.Exec(ctx, f.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", describePostgresError(err))
	}

	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, f.Version, f.Name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	log.Info().Int("version", f.Version).Str("name", f.Name).Msg("Migration applied")
	return nil
}

// migrationApplied runs outside the migration transaction, so a missing
// schema_migrations table reads as not applied instead of aborting it.
func migrationApplied(ctx context.Context, pool *pgxpool.Pool, version int) (bool, error) {
	var applied bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
	).Scan(&applied)
	if err != nil {
		if pgErr, ok := pgError(err); ok && pgErr.Code == pgerrcode.UndefinedTable {
			return false, nil
		}
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return applied, nil
}
