package commands

import (
	"context"

	"github.com/ascendhq/fieldcrm/internal/logger"
	postgresstore "github.com/ascendhq/fieldcrm/internal/store/postgres"
)

type BackfillCmd struct {
	PostgresStore PostgresFlags `embed:"" prefix:"postgres-"`
}

// Run assigns customer uids to rows created before allocation existed.
// Safe to re-run; rows that already carry a uid are untouched.
func (c *BackfillCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	pool, err := c.PostgresStore.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	assigned, err := postgresstore.NewSequenceStore(pool).Backfill(ctx)
	if err != nil {
		return err
	}

	log.Info().Int("assigned", assigned).Msg("Backfill complete")
	return nil
}
