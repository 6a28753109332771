package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/javabuild/internal/build"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Main       string   `arg:"" help:"Fully qualified name of the main class"`
	Args       []string `arg:"" optional:"" passthrough:"" help:"Arguments passed to main"`
	VMArg      []string `name:"vm-arg" help:"Argument placed before the main class (repeatable)"`
	WorkingDir string   `name:"working-dir" type:"path" help:"Directory the program runs in (default: runner.working_dir)"`
	Files      []string `name:"source" type:"path" help:"Source files or directories to compile first (default: project.sources)"`
	Bulk       bool     `help:"Compile all sources as a single unit"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return r.run(ctx, g, root)
}

func (r *RunCmd) run(ctx context.Context, g *Global, root *CLI) error {
	svc, _, err := root.openService(g, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	res, err := svc.RunMain(ctx, build.RunRequest{
		MainClass:  r.Main,
		Args:       r.Args,
		VMArgs:     r.VMArg,
		WorkingDir: r.WorkingDir,
		Files:      r.Files,
		Bulk:       r.Bulk,
	})
	if err != nil {
		return err
	}
	for _, line := range res.Output.Stdout {
		_, _ = fmt.Fprintln(root.out(), line)
	}
	for _, line := range res.Output.Stderr {
		_, _ = fmt.Fprintln(root.errOut(), line)
	}
	return nil
}
