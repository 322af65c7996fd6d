// Package drenv reads the CLI's environment variables and builds its logger.
package drenv

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Trace exporters for the replication drill.
const (
	TraceNone    = "none"
	TraceStdout  = "stdout"
	TraceXrayUDP = "xrayudp"
)

type Env struct {
	LogLevel zapcore.Level `env:"DRCTL_LOG_LEVEL" envDefault:"info"`
	Trace    string        `env:"DRCTL_TRACE" envDefault:"none"`
	// Profile overrides aws.profile of drctl.toml.
	Profile string `env:"AWS_PROFILE"`
}

// Parse reads the environment of the current process.
func Parse() (*Env, error) {
	return ParseFrom(envMap(os.Environ()))
}

// ParseFrom reads the given environment.
func ParseFrom(environ map[string]string) (*Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: environ}); err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}

	switch e.Trace {
	case TraceNone, TraceStdout, TraceXrayUDP:
	default:
		return nil, errors.Newf("DRCTL_TRACE must be one of none, stdout, xrayudp, got %q", e.Trace)
	}
	return &e, nil
}

// NewLogger builds a console logger writing to stderr so that command output on
// stdout stays machine-readable.
func (e *Env) NewLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(e.LogLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = e.LogLevel > zapcore.DebugLevel
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger.Named("drctl"), nil
}

// ResolveProfile returns the AWS profile to use, preferring the environment.
func (e *Env) ResolveProfile(configured string) string {
	if e.Profile != "" {
		return e.Profile
	}
	return configured
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}
