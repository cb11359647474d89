package commands

import (
	"context"

	"github.com/ascendhq/fieldcrm/internal/logger"
	postgresstore "github.com/ascendhq/fieldcrm/internal/store/postgres"
)

type MigrateCmd struct {
	PostgresStore PostgresFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	// connect never double-migrates; the flag is ignored here.
	c.PostgresStore.AutoMigrate = false

	pool, err := c.PostgresStore.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgresstore.Migrate(ctx, pool); err != nil {
		return err
	}

	log.Info().Msg("Migrations complete")
	return nil
}
