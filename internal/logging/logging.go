// Package logging builds the process-wide zap logger. Subsystems get named
// child loggers so log lines can be filtered per concern (search, resolve,
// membership, text).
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger. level is a zap level name ("debug", "info", "warn",
// "error"); verbose forces debug regardless of level. Console encoding is
// the default; json switches to structured output for log shippers.
func New(level string, json, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !json {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	// Stack traces on warn-level retry noise are useless; errors keep them.
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// Named returns a child logger tagged with the subsystem name. A nil parent
// yields a no-op logger so library code never has to nil-check.
func Named(parent *zap.Logger, subsystem string) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	return parent.Named(subsystem)
}
