package commands

import (
	"context"
	"fmt"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Target bool `help:"Also remove the target directory"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	return c.run(context.Background(), g, root)
}

func (c *CleanCmd) run(ctx context.Context, g *Global, root *CLI) error {
	svc, _, err := root.openService(g, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err := svc.Clean(ctx, c.Target); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(root.out(), "Build units cleared")
	return nil
}
