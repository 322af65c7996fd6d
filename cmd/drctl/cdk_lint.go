package main

import (
	"os"

	"github.com/basewarphq/bwdr/cmd/internal/cfnvalidate"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type LintCmd struct {
	Strict bool `help:"Fail on warnings as well as errors."`
}

func (c *LintCmd) Run(cfg *projcfg.Config, logger *zap.Logger) error {
	templates, err := cfnvalidate.Templates(cfg.CdkOutDir())
	if err != nil {
		return err
	}
	logger.Debug("linting templates", zap.Int("count", len(templates)))

	report, err := cfnvalidate.Lint(templates)
	if err != nil {
		return err
	}

	rep := reporter{out: os.Stdout}
	for _, f := range report.Findings {
		rep.Line("%s", f.String())
	}

	failing := report.Errors()
	if c.Strict {
		failing = len(report.Findings)
	}
	if failing > 0 {
		return errors.Newf("%d finding(s) in %d template(s)", failing, len(report.Templates))
	}
	rep.Line("%d template(s) clean", len(report.Templates))
	return nil
}
