package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/javabuild/cmd/javabuild/commands"
	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
	"git.home.luguber.info/inful/javabuild/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("javabuild"),
		kong.Description("Incremental Java compilation with per-unit dependency tracking."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)
	err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
