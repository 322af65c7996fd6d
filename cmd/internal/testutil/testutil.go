package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/cockroachdb/errors"
)

func Setup(tb testing.TB, files map[string]string) string {
	tb.Helper()

	root := tb.TempDir()

	for relPath, content := range files {
		fullPath := filepath.Join(root, relPath)

		dir := filepath.Dir(fullPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			tb.Fatalf("creating directory %s: %v", dir, err)
		}

		if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
			tb.Fatalf("writing file %s: %v", fullPath, err)
		}
	}

	return root
}

func RequireBinary(tb testing.TB, name string) {
	tb.Helper()

	if _, err := exec.LookPath(name); err != nil {
		tb.Skipf("skipping: %s not in PATH", name)
	}
}

// FakeRunner replays canned output for commands whose joined command line contains
// a registered substring. Unmatched commands fail.
type FakeRunner struct {
	mu        sync.Mutex
	responses []fakeResponse
	Calls     []string
}

type fakeResponse struct {
	match  string
	output string
	err    error
}

var _ cmdexec.Runner = (*FakeRunner)(nil)

// On registers output for commands containing match. Earlier registrations win.
func (f *FakeRunner) On(match, output string) *FakeRunner {
	f.responses = append(f.responses, fakeResponse{match: match, output: output})
	return f
}

// Fail registers an error for commands containing match.
func (f *FakeRunner) Fail(match string, err error) *FakeRunner {
	f.responses = append(f.responses, fakeResponse{match: match, err: err})
	return f
}

func (f *FakeRunner) Output(_ context.Context, _, name string, args ...string) (string, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, line)
	for _, r := range f.responses {
		if strings.Contains(line, r.match) {
			return r.output, r.err
		}
	}
	return "", errors.Newf("unexpected command: %s", line)
}

func (f *FakeRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	_, err := f.Output(ctx, dir, name, args...)
	return err
}

// Called reports whether any recorded command line contains all given parts.
func (f *FakeRunner) Called(parts ...string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.Calls {
		all := true
		for _, p := range parts {
			if !strings.Contains(call, p) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
