// Package logging builds the one zap.Logger a coincenter process passes
// down to every component that needs one, grounded on the teacher's
// pkg/util/log.go. There is no package-level logger singleton: New
// returns a value callers thread through explicitly, per spec.md §9's
// no-global-state design note (SPEC_FULL.md §4.A).
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured logger at level. When logFile is
// non-empty, log records are teed to both stderr and that file; an empty
// logFile logs to stderr only.
func New(level zapcore.Level, logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if logFile == "" {
		return cfg.Build()
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	encoderCfg := cfg.EncoderConfig
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(jsonEncoder, zapcore.Lock(os.Stderr), level),
		zapcore.NewCore(jsonEncoder, zapcore.AddSync(file), level),
	)
	return zap.New(core), nil
}

// Nop returns a logger that discards everything, the default for
// components and tests that don't care about log output.
func Nop() *zap.Logger { return zap.NewNop() }
