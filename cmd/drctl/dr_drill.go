package main

import (
	"context"
	"os"
	"strconv"

	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/cfnread"
	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/drenv"
	"github.com/basewarphq/bwdr/cmd/internal/drill"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	infracdk "github.com/basewarphq/bwdr/infra/cdk"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type DrillCmd struct{}

func (c *DrillCmd) Run(cfg *projcfg.Config, env *drenv.Env, run cmdexec.Runner, logger *zap.Logger) error {
	ctx := context.Background()

	cctx, err := cdkctx.Load(cfg.CdkDir())
	if err != nil {
		return err
	}
	if !cctx.SessionTable {
		return errors.New("the drill needs the session table; set session-table in cdk.json")
	}

	table, err := cfnread.RequireOutput(ctx, run, cctx.PrimaryRegion,
		cctx.StackName(cctx.PrimaryRegion, bwcdkutil.StackKindRegional), infracdk.SessionTableOutputKey)
	if err != nil {
		return err
	}

	tp, shutdown, err := drill.NewTracerProvider(ctx, env.Trace)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	clients, err := drill.NewClients(ctx, env.ResolveProfile(cfg.Aws.Profile),
		cctx.PrimaryRegion, cctx.SecondaryRegion, tp)
	if err != nil {
		return err
	}

	logger.Info("running replication drill",
		zap.String("table", table),
		zap.String("from", cctx.PrimaryRegion),
		zap.String("to", cctx.SecondaryRegion))

	res, err := drill.Run(ctx, clients.Primary, clients.Secondary, drill.Options{
		Table:        table,
		Timeout:      cfg.DrillTimeout(),
		PollInterval: cfg.DrillPollInterval(),
		Logger:       logger,
		Tracer:       tp.Tracer("drctl/drill"),
	})
	if err != nil {
		return err
	}

	rep := reporter{out: os.Stdout}
	rep.Table([]string{"PROBE", "FROM", "TO", "POLLS", "LAG"}, [][]string{{
		res.MarkerID,
		cctx.Areas[cctx.PrimaryRegion],
		cctx.Areas[cctx.SecondaryRegion],
		strconv.Itoa(res.Polls),
		res.Lag().String(),
	}})
	return nil
}
