package main

import (
	"slices"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/failover"
	"github.com/basewarphq/bwdr/cmd/internal/stackgraph"
)

func parse(t *testing.T, args ...string) (*App, *kong.Context) {
	t.Helper()

	var app App
	parser, err := kong.New(&app, kong.Name("drctl"))
	if err != nil {
		t.Fatalf("building parser: %v", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		t.Fatalf("parsing %v: %v", args, err)
	}
	return &app, kctx
}

func TestParse_DeployStage(t *testing.T) {
	t.Parallel()

	app, kctx := parse(t, "cdk", "deploy", "peering", "--require-approval")
	if kctx.Command() != "cdk deploy <stage>" {
		t.Errorf("command = %q", kctx.Command())
	}
	if app.Cdk.Deploy.Stage != cdkctx.StagePeering || !app.Cdk.Deploy.RequireApproval {
		t.Errorf("deploy = %+v", app.Cdk.Deploy)
	}
}

func TestParse_StageDefaultsToAll(t *testing.T) {
	t.Parallel()

	app, _ := parse(t, "cdk", "diff")
	if app.Cdk.Diff.Stage != cdkctx.StageAll {
		t.Errorf("stage = %q, want all", app.Cdk.Diff.Stage)
	}
}

func TestParse_Failover(t *testing.T) {
	t.Parallel()

	app, _ := parse(t, "dr", "failover", "--to", "secondary", "--planned")
	fo := app.Dr.Failover
	if fo.To != failover.TargetSecondary || !fo.Planned || fo.Yes {
		t.Errorf("failover = %+v", fo)
	}
	if fo.Timeout != 10*time.Minute {
		t.Errorf("timeout = %s, want 10m", fo.Timeout)
	}
}

func TestParse_RejectsUnknownTarget(t *testing.T) {
	t.Parallel()

	var app App
	parser, err := kong.New(&app, kong.Name("drctl"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"dr", "failover", "--to", "tertiary"}); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestParse_GraphFormat(t *testing.T) {
	t.Parallel()

	app, _ := parse(t, "cdk", "graph", "--format", "mermaid")
	if app.Cdk.Graph.Format != stackgraph.FormatMermaid {
		t.Errorf("format = %q", app.Cdk.Graph.Format)
	}
}

func TestCdkStageArgs(t *testing.T) {
	t.Parallel()

	cctx := &cdkctx.CDKContext{
		Qualifier:       "drs",
		PrimaryRegion:   "ap-northeast-1",
		SecondaryRegion: "ap-northeast-3",
		GlobalRouting:   bwcdkutil.GlobalRoutingAccelerator,
	}

	args, err := cdkStageArgs(cctx, cdkctx.StageRegional)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"--exclusively", "drsApn1Regional", "drsApn3Regional"}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}

	cctx.GlobalRouting = bwcdkutil.GlobalRoutingDNSFailover
	if _, err := cdkStageArgs(cctx, cdkctx.StageGlobal); err == nil {
		t.Error("global stage should fail without accelerator routing")
	}
}

func TestOutputRows_Sorted(t *testing.T) {
	t.Parallel()

	rows := outputRows(map[string]string{"b": "2", "a": "1"})
	if len(rows) != 2 || rows[0][0] != "a" || rows[1][1] != "2" {
		t.Errorf("rows = %v", rows)
	}
}
