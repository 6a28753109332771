package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/javabuild/internal/engine"
)

// UnitsCmd implements the 'units' command.
type UnitsCmd struct {
	JSON   bool `help:"Print units as JSON"`
	Failed bool `help:"Only list failed units"`
}

func (u *UnitsCmd) Run(g *Global, root *CLI) error {
	return u.run(context.Background(), g, root)
}

func (u *UnitsCmd) run(ctx context.Context, g *Global, root *CLI) error {
	svc, _, err := root.openService(g, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	units, err := svc.Units(ctx)
	if err != nil {
		return err
	}
	if u.Failed {
		kept := units[:0]
		for _, unit := range units {
			if !unit.Succeeded() {
				kept = append(kept, unit)
			}
		}
		units = kept
	}

	if u.JSON {
		enc := json.NewEncoder(root.out())
		enc.SetIndent("", "  ")
		return enc.Encode(units)
	}

	tw := tabwriter.NewWriter(root.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tSTATE\tREQUIRES\tPROVIDES\tUPDATED\tDESCRIPTION")
	for _, unit := range units {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			unit.Key, unit.State, len(unit.Requirements), len(unit.Provides),
			unit.FinishedAt.Format("2006-01-02 15:04:05"), describeUnit(unit))
	}
	return tw.Flush()
}

func describeUnit(u *engine.Unit) string {
	if len(u.Cycle) > 1 {
		return fmt.Sprintf("%s [cycle of %d]", u.Description, len(u.Cycle))
	}
	return u.Description
}
