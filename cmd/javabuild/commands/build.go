package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/javabuild/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Files []string `arg:"" optional:"" type:"path" help:"Source files or directories (default: project.sources)"`
	Bulk  bool     `help:"Compile all sources as a single unit"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return b.run(ctx, g, root)
}

func (b *BuildCmd) run(ctx context.Context, g *Global, root *CLI) error {
	svc, _, err := root.openService(g, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	res, err := svc.Run(ctx, build.Request{Files: b.Files, Bulk: b.Bulk})
	printSummary(root.out(), res)
	return err
}
