package main

import (
	"context"

	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
)

// BootstrapCmd bootstraps every environment the app's stacks target, which covers
// both regions of the pair. The qualifier is read from cdk.json.
type BootstrapCmd struct{}

func (c *BootstrapCmd) Run(cfg *projcfg.Config, run cmdexec.Runner) error {
	return run.Run(context.Background(), cfg.CdkDir(), "cdk", "bootstrap")
}
