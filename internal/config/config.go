// Package config provides configuration loading for the uowdemo command.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"
)

const (
	envPrefix         = "UOW_"
	maxConfigFileSize = 1024 * 1024 // 1MB
	demoUnits         = 3
)

// Config is the demo configuration.
type Config struct {
	Log  LogConfig  `koanf:"log"`
	Demo DemoConfig `koanf:"demo"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  zapcore.Level `koanf:"level"`
	Format string        `koanf:"format"`
}

// DemoConfig controls which demo units fail and how the failure is handled.
// Unit numbers are 1-based; 0 means no unit fails.
type DemoConfig struct {
	FailUnit     int  `koanf:"fail_unit"`
	FailRollback int  `koanf:"fail_rollback"`
	AutoRollback bool `koanf:"auto_rollback"`
	DOT          bool `koanf:"dot"`
	Trace        bool `koanf:"trace"`
	Metrics      bool `koanf:"metrics"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  zapcore.InfoLevel,
			Format: "console",
		},
		Demo: DemoConfig{
			FailUnit:     demoUnits,
			AutoRollback: true,
		},
	}
}

// Load loads configuration from an optional YAML file, then overrides it
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (UOW_LOG_LEVEL, UOW_DEMO_FAIL_UNIT, etc.)
//  2. YAML config file at path, if path is not empty
//  3. Default()
//
// Environment variables map to keys by splitting on the first underscore
// after the prefix:
//
//	UOW_LOG_LEVEL          -> log.level
//	UOW_DEMO_AUTO_ROLLBACK -> demo.auto_rollback
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}
	if c.Demo.FailUnit < 0 || c.Demo.FailUnit > demoUnits {
		return fmt.Errorf("demo fail_unit must be between 0 and %d, got %d", demoUnits, c.Demo.FailUnit)
	}
	if c.Demo.FailRollback < 0 || c.Demo.FailRollback > demoUnits {
		return fmt.Errorf("demo fail_rollback must be between 0 and %d, got %d", demoUnits, c.Demo.FailRollback)
	}
	return nil
}
