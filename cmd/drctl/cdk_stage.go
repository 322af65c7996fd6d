package main

import (
	"context"

	"github.com/basewarphq/bwdr/cmd/internal/bincheck"
	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"go.uber.org/zap"
)

// StageArg selects the stacks of a cdk command.
type StageArg struct {
	Stage cdkctx.Stage `arg:"" optional:"" default:"all" enum:"regional,peering,global,all" help:"Stage to operate on (${enum})."`
}

// cdkStageArgs returns the cdk arguments that limit a command to the stacks of a stage.
func cdkStageArgs(cctx *cdkctx.CDKContext, stage cdkctx.Stage) ([]string, error) {
	stacks, err := cctx.StageStacks(stage)
	if err != nil {
		return nil, err
	}
	return append([]string{"--exclusively"}, stacks...), nil
}

func runCdk(
	ctx context.Context, cfg *projcfg.Config, run cmdexec.Runner, logger *zap.Logger,
	stage cdkctx.Stage, args ...string,
) error {
	if err := bincheck.NewChecker(run).Require(ctx, "cdk"); err != nil {
		return err
	}

	cctx, err := cdkctx.Load(cfg.CdkDir())
	if err != nil {
		return err
	}
	stageArgs, err := cdkStageArgs(cctx, stage)
	if err != nil {
		return err
	}

	args = append(args, stageArgs...)
	logger.Debug("running cdk", zap.Strings("args", args), zap.String("dir", cfg.CdkDir()))
	return run.Run(ctx, cfg.CdkDir(), "cdk", args...)
}

type SynthCmd struct {
	StageArg `embed:""`
}

func (c *SynthCmd) Run(cfg *projcfg.Config, run cmdexec.Runner, logger *zap.Logger) error {
	return runCdk(context.Background(), cfg, run, logger, c.Stage,
		"synth", "--quiet", "--output", cfg.Cdk.Out)
}

type DeployCmd struct {
	StageArg `embed:""`
	RequireApproval bool `help:"Prompt before deploying security-sensitive changes."`
}

func (c *DeployCmd) Run(cfg *projcfg.Config, run cmdexec.Runner, logger *zap.Logger) error {
	approval := "never"
	if c.RequireApproval {
		approval = "broadening"
	}
	return runCdk(context.Background(), cfg, run, logger, c.Stage,
		"deploy", "--require-approval", approval, "--output", cfg.Cdk.Out)
}

type DiffCmd struct {
	StageArg `embed:""`
}

func (c *DiffCmd) Run(cfg *projcfg.Config, run cmdexec.Runner, logger *zap.Logger) error {
	return runCdk(context.Background(), cfg, run, logger, c.Stage, "diff", "--output", cfg.Cdk.Out)
}
