// Package cmdexec runs external commands (cdk, aws) with errors that carry the exit
// code and captured stderr.
package cmdexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

type Error struct {
	Cmd      string
	Args     []string
	Dir      string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("(in %s) %s %s", e.Dir, e.Cmd, strings.Join(e.Args, " "))
	if e.Stderr != "" {
		return fmt.Sprintf("%s: exit %d\n%s", msg, e.ExitCode, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s: exit %d", msg, e.ExitCode)
}

// Runner runs external commands. Commands that talk to AWS take it as a dependency
// so tests can replay canned CLI output.
type Runner interface {
	// Output runs the command and returns its stdout.
	Output(ctx context.Context, dir, name string, args ...string) (string, error)
	// Run runs the command attached to the terminal.
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Exec is the Runner backed by os/exec.
type Exec struct {
	// Env is appended to the environment of the current process.
	Env []string
}

var _ Runner = Exec{}

// WithProfile returns an Exec that selects the given AWS profile. An empty profile
// leaves the environment untouched.
func WithProfile(profile string) Exec {
	if profile == "" {
		return Exec{}
	}
	return Exec{Env: []string{"AWS_PROFILE=" + profile}}
}

func (x Exec) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	if !filepath.IsAbs(dir) {
		return "", errors.Newf("cmdexec: dir must be absolute, got %q", dir)
	}

	var stderr bytes.Buffer
	cmd := x.command(ctx, dir, name, args)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", wrapErr(dir, name, args, err, stderr.String())
	}
	return string(out), nil
}

func (x Exec) Run(ctx context.Context, dir, name string, args ...string) error {
	if !filepath.IsAbs(dir) {
		return errors.Newf("cmdexec: dir must be absolute, got %q", dir)
	}

	var stderrBuf bytes.Buffer
	cmd := x.command(ctx, dir, name, args)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderrBuf)

	if err := cmd.Run(); err != nil {
		return wrapErr(dir, name, args, err, stderrBuf.String())
	}
	return nil
}

func (x Exec) command(ctx context.Context, dir, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(x.Env) > 0 {
		cmd.Env = append(os.Environ(), x.Env...)
	}
	return cmd
}

// Output runs a command with the default Exec.
func Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	return Exec{}.Output(ctx, dir, name, args...)
}

// Run runs a command with the default Exec.
func Run(ctx context.Context, dir, name string, args ...string) error {
	return Exec{}.Run(ctx, dir, name, args...)
}

func wrapErr(dir, name string, args []string, err error, stderr string) error {
	exitCode := 1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
		if stderr == "" {
			stderr = string(exitErr.Stderr)
		}
	}
	return &Error{
		Cmd:      name,
		Args:     args,
		Dir:      dir,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
}
