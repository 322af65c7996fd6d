package main

import (
	"context"
	"time"

	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/failover"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type FailoverCmd struct {
	To      failover.Target `required:"" enum:"primary,secondary" help:"Region role to make active (${enum})."`
	Planned bool            `help:"Switch over without data loss. Requires both regions to be healthy."`
	Yes     bool            `help:"Confirm an unplanned failover, which may lose recent writes."`
	Timeout time.Duration   `default:"10m" help:"How long a planned switchover may take."`
}

func (c *FailoverCmd) Run(cfg *projcfg.Config, run cmdexec.Runner, logger *zap.Logger) error {
	if !c.Planned && !c.Yes {
		return errors.New("unplanned failover may lose data; pass --yes to confirm or --planned to switch over")
	}

	ctrl, err := newController(cfg, run, logger)
	if err != nil {
		return err
	}
	ctrl.Timeout = c.Timeout

	region, err := ctrl.Region(c.To)
	if err != nil {
		return err
	}
	logger.Info("starting failover",
		zap.String("target", string(c.To)), zap.String("region", region), zap.Bool("planned", c.Planned))

	if err := ctrl.Failover(context.Background(), c.To, c.Planned); err != nil {
		return err
	}
	logger.Info("failover complete", zap.String("region", region))
	return nil
}
