// Package logging builds zap loggers from configuration.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fortressi/uow/internal/config"
)

// New creates a logger writing to out.
func New(cfg config.LogConfig, out zapcore.WriteSyncer) (*zap.Logger, error) {
	if cfg.Format != "json" && cfg.Format != "console" {
		return nil, fmt.Errorf("format must be 'json' or 'console', got %q", cfg.Format)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(out), cfg.Level)
	return zap.New(core), nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}
