package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ascendhq/fieldcrm/cmd/fieldcrm/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug    bool `help:"Enable debug mode."`
		Version  kong.VersionFlag
		Server   commands.ServerCmd   `cmd:"" help:"Start the API server"`
		Migrate  commands.MigrateCmd  `cmd:"" help:"Run database migrations"`
		Seed     commands.SeedCmd     `cmd:"" help:"Seed data into the database"`
		Backfill commands.BackfillCmd `cmd:"" help:"Assign customer uids to rows that predate allocation"`
		Token    commands.TokenCmd    `cmd:"" help:"Issue and inspect tokens"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
