package main

import (
	"context"
	"os"
	"sort"

	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/cfnread"
	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"github.com/cockroachdb/errors"
)

type OutputsCmd struct{}

func (c *OutputsCmd) Run(cfg *projcfg.Config, run cmdexec.Runner) error {
	ctx := context.Background()

	cctx, err := cdkctx.Load(cfg.CdkDir())
	if err != nil {
		return err
	}
	stacks, err := cctx.StageStacks(cdkctx.StageAll)
	if err != nil {
		return err
	}

	rep := reporter{out: os.Stdout}
	for _, name := range stacks {
		region, ok := cctx.ResolveStackRegion(name)
		if !ok {
			return errors.Newf("cannot resolve region of stack %s", name)
		}

		rep.Section(name + " (" + region + ")")
		stack, err := cfnread.Describe(ctx, run, region, name)
		switch {
		case errors.Is(err, cfnread.ErrNotDeployed):
			rep.Line("(not deployed)")
		case err != nil:
			return err
		default:
			rep.Line("status: %s", stack.Status)
			rep.Table([]string{"OUTPUT", "VALUE"}, outputRows(stack.Outputs))
		}
		rep.Line("")
	}
	return nil
}

func outputRows(outputs map[string]string) [][]string {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, outputs[k]})
	}
	return rows
}
