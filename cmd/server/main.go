package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rollcall-app/rollcall/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag
		Server  commands.ServerCmd  `cmd:"" help:"Start the attendance API server"`
		Migrate commands.MigrateCmd `cmd:"" help:"Apply pending database migrations and exit"`
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
