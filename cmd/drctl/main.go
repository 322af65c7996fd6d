package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/drenv"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"go.uber.org/zap"
)

type App struct {
	Cdk struct {
		Bootstrap BootstrapCmd `cmd:"" help:"Bootstrap CDK in both regions."`
		Synth     SynthCmd     `cmd:"" help:"Synthesize the stacks of a stage."`
		Deploy    DeployCmd    `cmd:"" help:"Deploy the stacks of a stage in dependency order."`
		Diff      DiffCmd      `cmd:"" help:"Show the CDK diff of a stage."`
		Outputs   OutputsCmd   `cmd:"" help:"Show the outputs of all deployed stacks."`
		Graph     GraphCmd     `cmd:"" help:"Render the stack dependency graph of the cloud assembly."`
		Lint      LintCmd      `cmd:"" help:"Lint the synthesized CloudFormation templates."`
	} `cmd:"" help:"CDK commands."`
	Dr struct {
		Status   StatusCmd   `cmd:"" help:"Show traffic dials and global database members."`
		Failover FailoverCmd `cmd:"" help:"Move traffic and the database writer to a region."`
		Drill    DrillCmd    `cmd:"" help:"Measure session replication lag between the regions."`
	} `cmd:"" help:"Disaster-recovery commands."`
	Doctor DoctorCmd `cmd:"" help:"Check tools, configuration and AWS credentials."`
}

func main() {
	cfg, err := projcfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	env, err := drenv.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, err := env.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var runner cmdexec.Runner = cmdexec.WithProfile(env.ResolveProfile(cfg.Aws.Profile))

	var app App
	ctx := kong.Parse(&app,
		kong.Name("drctl"),
		kong.Description("Operate a two-region disaster-recovery deployment."),
		kong.Bind(cfg, env, logger),
		kong.BindTo(runner, (*cmdexec.Runner)(nil)),
	)
	if err := ctx.Run(); err != nil {
		logger.Debug("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
