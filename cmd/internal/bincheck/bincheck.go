// Package bincheck verifies that the external tools drctl shells out to are installed.
package bincheck

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/cockroachdb/errors"
)

// Required are the binaries every drctl command may invoke.
var Required = []string{"aws", "cdk"}

type Result struct {
	Name    string
	InPath  bool
	Version string
}

// Checker caches lookups so repeated preflights stay cheap.
type Checker struct {
	cache    sync.Map
	run      cmdexec.Runner
	lookPath func(string) (string, error)
}

func NewChecker(run cmdexec.Runner) *Checker {
	return &Checker{run: run, lookPath: exec.LookPath}
}

// NewCheckerWithLookPath is NewChecker with a custom PATH lookup.
func NewCheckerWithLookPath(run cmdexec.Runner, lookPath func(string) (string, error)) *Checker {
	return &Checker{run: run, lookPath: lookPath}
}

func (c *Checker) Check(ctx context.Context, name string) Result {
	if v, ok := c.cache.Load(name); ok {
		r, _ := v.(Result)
		return r
	}

	r := Result{Name: name}
	if _, err := c.lookPath(name); err == nil {
		r.InPath = true
		r.Version = c.version(ctx, name)
	}

	actual, _ := c.cache.LoadOrStore(name, r)
	stored, _ := actual.(Result)
	return stored
}

// Require returns an error listing every binary that is not in PATH.
func (c *Checker) Require(ctx context.Context, names ...string) error {
	var missing []string
	for _, name := range names {
		if !c.Check(ctx, name).InPath {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.Newf("missing required tools: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Checker) version(ctx context.Context, name string) string {
	out, err := c.run.Output(ctx, "/", name, "--version")
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return line
}
