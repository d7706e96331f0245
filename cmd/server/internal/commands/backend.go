package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/identity"
	"github.com/wolfeidau/townhall/internal/identity/gotrue"
	"github.com/wolfeidau/townhall/internal/signup"
	"github.com/wolfeidau/townhall/internal/store"
	memorystore "github.com/wolfeidau/townhall/internal/store/memory"
	postgresstore "github.com/wolfeidau/townhall/internal/store/postgres"
	sqlitestore "github.com/wolfeidau/townhall/internal/store/sqlite"
	"github.com/wolfeidau/townhall/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// BackendFlags selects the store, identity provider and signup policy shared
// by every command that provisions accounts.
type BackendFlags struct {
	// Store configuration
	StoreType     string             `help:"store type (memory, postgres or sqlite)" default:"memory" env:"TOWNHALL_STORE_TYPE" enum:"memory,postgres,sqlite"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	SQLitePath    string             `name:"sqlite-path" help:"path to the SQLite database file" default:"townhall.db" env:"TOWNHALL_SQLITE_PATH"`
	AutoMigrate   bool               `help:"run PostgreSQL migrations on startup" default:"false" env:"TOWNHALL_AUTO_MIGRATE"`

	// Identity configuration
	IdentityType string      `help:"identity provider (memory or gotrue)" default:"memory" env:"TOWNHALL_IDENTITY_TYPE" enum:"memory,gotrue"`
	GoTrue       GoTrueFlags `embed:"" prefix:"gotrue-"`

	// Signup policy
	PolicyFile string `help:"YAML file overriding the signup policy" default:"" env:"TOWNHALL_POLICY_FILE"`
}

type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"10"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`
}

type GoTrueFlags struct {
	URL           string        `help:"GoTrue base URL, e.g. https://project.supabase.co/auth/v1" env:"TOWNHALL_GOTRUE_URL"`
	AnonKey       string        `help:"GoTrue anon key sent as the apikey header" env:"TOWNHALL_GOTRUE_ANON_KEY"`
	JWTSecret     string        `help:"GoTrue JWT secret used to sign service role tokens" env:"TOWNHALL_GOTRUE_JWT_SECRET"`
	MaxTries      uint          `help:"attempts per GoTrue request" default:"3" env:"TOWNHALL_GOTRUE_MAX_TRIES"`
	RetryInterval time.Duration `help:"initial retry backoff for GoTrue requests" default:"200ms" env:"TOWNHALL_GOTRUE_RETRY_INTERVAL"`
}

func (b *BackendFlags) Validate() error {
	switch b.StoreType {
	case "postgres":
		if b.PostgresStore.ConnString == "" {
			return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
		}
	case "sqlite":
		if b.SQLitePath == "" {
			return errors.New("SQLite path is required (--sqlite-path or TOWNHALL_SQLITE_PATH)")
		}
	}

	if b.IdentityType == "gotrue" {
		if b.GoTrue.URL == "" {
			return errors.New("GoTrue URL is required (--gotrue-url or TOWNHALL_GOTRUE_URL)")
		}
		if b.GoTrue.AnonKey == "" {
			return errors.New("GoTrue anon key is required (--gotrue-anon-key or TOWNHALL_GOTRUE_ANON_KEY)")
		}
		if b.GoTrue.JWTSecret == "" {
			return errors.New("GoTrue JWT secret is required (--gotrue-jwt-secret or TOWNHALL_GOTRUE_JWT_SECRET)")
		}
	}

	return nil
}

func (b *BackendFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:      b.PostgresStore.ConnString,
		MaxConns:        b.PostgresStore.MaxConns,
		MinConns:        b.PostgresStore.MinConns,
		MaxConnLifetime: b.PostgresStore.MaxConnLifetime,
		MaxConnIdleTime: b.PostgresStore.MaxConnIdleTime,
		AutoMigrate:     b.AutoMigrate,
	}
}

// openStores connects the configured store backend. The returned function
// releases it.
func (b *BackendFlags) openStores(ctx context.Context) (store.Stores, func(), error) {
	switch b.StoreType {
	case "postgres":
		stores, closeFn, err := postgresstore.Open(ctx, b.poolConfig())
		if err != nil {
			return store.Stores{}, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		log.Info().Msg("Using PostgreSQL stores")
		return stores, closeFn, nil

	case "sqlite":
		stores, closeFn, err := sqlitestore.Open(ctx, b.SQLitePath)
		if err != nil {
			return store.Stores{}, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info().Str("path", b.SQLitePath).Msg("Using SQLite stores")
		return stores, closeFn, nil

	default:
		log.Info().Msg("Using in-memory stores")
		return memorystore.NewStores(), func() {}, nil
	}
}

func (b *BackendFlags) identityProvider() (identity.Provider, error) {
	if b.IdentityType != "gotrue" {
		log.Warn().Msg("Using in-memory identity provider, accounts are lost on restart")
		return identity.NewMemoryProvider(), nil
	}

	client, err := gotrue.New(gotrue.Config{
		BaseURL:         b.GoTrue.URL,
		AnonKey:         b.GoTrue.AnonKey,
		JWTSecret:       b.GoTrue.JWTSecret,
		MaxTries:        b.GoTrue.MaxTries,
		InitialInterval: b.GoTrue.RetryInterval,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", b.GoTrue.URL).Msg("Using GoTrue identity provider")
	return client, nil
}

func (b *BackendFlags) policy() (signup.Policy, error) {
	if b.PolicyFile == "" {
		return signup.DefaultPolicy(), nil
	}

	p, err := signup.LoadPolicy(b.PolicyFile)
	if err != nil {
		return signup.Policy{}, err
	}

	log.Info().Str("file", b.PolicyFile).Strs("email_suffixes", p.EmailSuffixes).Msg("Loaded signup policy")
	return p, nil
}

// provisioner assembles the account provisioner from the configured backends.
// The returned function releases the stores.
func (b *BackendFlags) provisioner(ctx context.Context, metrics *telemetry.Metrics, tp trace.TracerProvider) (*signup.Provisioner, func(), error) {
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}

	policy, err := b.policy()
	if err != nil {
		return nil, nil, err
	}

	provider, err := b.identityProvider()
	if err != nil {
		return nil, nil, err
	}

	stores, closeFn, err := b.openStores(ctx)
	if err != nil {
		return nil, nil, err
	}

	p, err := signup.NewProvisioner(provider, stores,
		signup.WithPolicy(policy),
		signup.WithMetrics(metrics),
		signup.WithTracerProvider(tp),
	)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to create provisioner: %w", err)
	}

	return p, closeFn, nil
}
