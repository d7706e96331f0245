package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/townhall/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug     bool `help:"Enable debug mode." env:"TOWNHALL_DEBUG"`
		Version   kong.VersionFlag
		Serve     commands.ServeCmd     `cmd:"" help:"Start the signup server (form + JSON API)"`
		Provision commands.ProvisionCmd `cmd:"" help:"Provision a single account from the command line"`
		Migrate   commands.MigrateCmd   `cmd:"" help:"Apply the embedded database migrations"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("townhall"),
		kong.Description("Municipal workflow signup service."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
