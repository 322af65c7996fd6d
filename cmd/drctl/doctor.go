package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/basewarphq/bwdr/cmd/internal/bincheck"
	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"github.com/cockroachdb/errors"
)

type DoctorCmd struct{}

func (c *DoctorCmd) Run(cfg *projcfg.Config, run cmdexec.Runner) error {
	ctx := context.Background()
	rep := reporter{out: os.Stdout}
	var failed bool

	rep.Section("Tools")
	checker := bincheck.NewChecker(run)
	for _, name := range bincheck.Required {
		r := checker.Check(ctx, name)
		if !r.InPath {
			rep.Line("  ✗ %s not found in PATH", name)
			failed = true
			continue
		}
		rep.Line("  ✓ %s (%s)", name, r.Version)
	}
	rep.Line("")

	rep.Section("CDK context")
	cctx, err := cdkctx.Load(cfg.CdkDir())
	if err != nil {
		rep.Line("  ✗ %v", err)
		failed = true
	} else {
		rep.Line("  ✓ %s: %s (%s) -> %s (%s), routing %s",
			cctx.ServiceName,
			cctx.PrimaryRegion, cctx.Areas[cctx.PrimaryRegion],
			cctx.SecondaryRegion, cctx.Areas[cctx.SecondaryRegion],
			cctx.GlobalRouting)
	}
	rep.Line("")

	rep.Section("AWS credentials")
	if account, err := callerAccount(ctx, run); err != nil {
		rep.Line("  ✗ %v", err)
		failed = true
	} else {
		rep.Line("  ✓ account %s", account)
	}
	rep.Line("")

	if failed {
		return errors.New("doctor found problems; see above")
	}
	rep.Line("All checks passed.")
	return nil
}

func callerAccount(ctx context.Context, run cmdexec.Runner) (string, error) {
	out, err := run.Output(ctx, "/", "aws", "sts", "get-caller-identity", "--no-cli-pager", "--output", "json")
	if err != nil {
		return "", errors.Wrap(err, "aws sts get-caller-identity")
	}
	var resp struct {
		Account string `json:"Account"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return "", errors.Wrap(err, "parsing caller identity")
	}
	return resp.Account, nil
}
