package main

import (
	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/failover"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"go.uber.org/zap"
)

func newController(cfg *projcfg.Config, run cmdexec.Runner, logger *zap.Logger) (*failover.Controller, error) {
	cctx, err := cdkctx.Load(cfg.CdkDir())
	if err != nil {
		return nil, err
	}
	return &failover.Controller{
		Run:               run,
		Context:           cctx,
		AcceleratorRegion: cfg.Aws.AcceleratorRegion,
		Logger:            logger,
	}, nil
}
