package drenv_test

import (
	"strings"
	"testing"

	"github.com/basewarphq/bwdr/cmd/internal/drenv"
	"go.uber.org/zap/zapcore"
)

func TestParseFrom_Defaults(t *testing.T) {
	t.Parallel()

	e, err := drenv.ParseFrom(map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.LogLevel != zapcore.InfoLevel {
		t.Errorf("LogLevel = %s, want info", e.LogLevel)
	}
	if e.Trace != drenv.TraceNone {
		t.Errorf("Trace = %q, want none", e.Trace)
	}
}

func TestParseFrom_Values(t *testing.T) {
	t.Parallel()

	e, err := drenv.ParseFrom(map[string]string{
		"DRCTL_LOG_LEVEL": "debug",
		"DRCTL_TRACE":     "stdout",
		"AWS_PROFILE":     "dr-admin",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.LogLevel != zapcore.DebugLevel {
		t.Errorf("LogLevel = %s, want debug", e.LogLevel)
	}
	if e.Trace != drenv.TraceStdout {
		t.Errorf("Trace = %q, want stdout", e.Trace)
	}
	if got := e.ResolveProfile("from-toml"); got != "dr-admin" {
		t.Errorf("ResolveProfile() = %q, want dr-admin", got)
	}
}

func TestParseFrom_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		environ map[string]string
		wantErr string
	}{
		{name: "bad level", environ: map[string]string{"DRCTL_LOG_LEVEL": "loud"}, wantErr: "parsing environment"},
		{name: "bad trace", environ: map[string]string{"DRCTL_TRACE": "jaeger"}, wantErr: "DRCTL_TRACE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := drenv.ParseFrom(tt.environ)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveProfile_FallsBackToConfig(t *testing.T) {
	t.Parallel()

	e := &drenv.Env{}
	if got := e.ResolveProfile("from-toml"); got != "from-toml" {
		t.Errorf("ResolveProfile() = %q, want from-toml", got)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	e := &drenv.Env{LogLevel: zapcore.WarnLevel}
	logger, err := e.NewLogger()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}
