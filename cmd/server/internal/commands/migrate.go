package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

type MigrateCmd struct {
	Backend BackendFlags `embed:""`
}

// Run applies the embedded migrations. SQLite databases are migrated when
// opened, PostgreSQL pools when AutoMigrate is set.
func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	setupLogger(globals)

	if c.Backend.StoreType == "memory" {
		return fmt.Errorf("store type %q has no migrations, use postgres or sqlite", c.Backend.StoreType)
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}

	c.Backend.AutoMigrate = true
	_, closeStores, err := c.Backend.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	log.Info().Str("store_type", c.Backend.StoreType).Msg("Database migrations completed")
	return nil
}
