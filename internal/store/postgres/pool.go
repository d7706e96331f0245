package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/store"
)

// NewPool creates a new PostgreSQL connection pool with the given configuration.
// It applies defaults, validates the config, creates the pool, and pings to verify connectivity.
func NewPool(ctx context.Context, cfg *PoolConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pool config is required")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleTime) * time.Second
	poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod) * time.Second
	poolConfig.ConnConfig.ConnectTimeout = time.Duration(cfg.ConnectTimeout) * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

// Open connects to PostgreSQL and returns the provisioning stores sharing one pool.
// The returned close function releases the pool.
func Open(ctx context.Context, cfg *PoolConfig) (store.Stores, func(), error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return store.Stores{}, nil, err
	}

	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Bool("auto_migrate", cfg.AutoMigrate).
		Msg("Connected to PostgreSQL")

	return store.Stores{
		Organizations: NewOrganizationStore(pool),
		Profiles:      NewProfileStore(pool),
		AuditLogs:     NewAuditLogStore(pool),
	}, pool.Close, nil
}
