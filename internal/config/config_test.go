package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `log:
  level: debug
  format: json
demo:
  fail_unit: 2
  fail_rollback: 1
  auto_rollback: false
  dot: true
  trace: true
  metrics: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Demo.FailUnit)
	assert.Equal(t, 1, cfg.Demo.FailRollback)
	assert.False(t, cfg.Demo.AutoRollback)
	assert.True(t, cfg.Demo.DOT)
	assert.True(t, cfg.Demo.Trace)
	assert.True(t, cfg.Demo.Metrics)
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "demo:\n  dot: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Demo.DOT)
	assert.False(t, cfg.Demo.Trace)
	assert.False(t, cfg.Demo.Metrics)
	assert.True(t, cfg.Demo.AutoRollback)
	assert.Equal(t, 3, cfg.Demo.FailUnit)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "log:\n  format: json\ndemo:\n  fail_unit: 2\n")
	t.Setenv("UOW_LOG_FORMAT", "console")
	t.Setenv("UOW_DEMO_FAIL_UNIT", "1")
	t.Setenv("UOW_DEMO_AUTO_ROLLBACK", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Demo.FailUnit)
	assert.False(t, cfg.Demo.AutoRollback)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"no failure", func(c *Config) { c.Demo.FailUnit = 0 }, true},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"fail unit too large", func(c *Config) { c.Demo.FailUnit = 4 }, false},
		{"negative fail rollback", func(c *Config) { c.Demo.FailRollback = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
