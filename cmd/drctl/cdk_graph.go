package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"github.com/basewarphq/bwdr/cmd/internal/stackgraph"
)

type GraphCmd struct {
	Format stackgraph.Format `default:"dot" enum:"dot,mermaid" help:"Output format (${enum})."`
	Order  bool              `help:"Print the deployment order instead of the graph."`
}

func (c *GraphCmd) Run(cfg *projcfg.Config) error {
	cctx, err := cdkctx.Load(cfg.CdkDir())
	if err != nil {
		return err
	}

	g, err := stackgraph.Load(cfg.CdkOutDir())
	if err != nil {
		return err
	}
	g = g.Filter(cctx.Qualifier)

	if c.Order {
		order, err := g.Order()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, strings.Join(order, "\n"))
		return nil
	}

	out, err := g.Render(c.Format)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, out)
	return nil
}
