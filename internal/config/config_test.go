package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenecore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.Engine.MaxSteps)
	assert.False(t, cfg.Engine.LoopBreaking)
	assert.Equal(t, LogLevelInfo, cfg.Log.Level)
	assert.Equal(t, LogFormatText, cfg.Log.Format)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, 60.0, cfg.Clock.Rate)
	assert.Zero(t, cfg.Clock.Duration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"zero rate", func(c *Config) { c.Clock.Rate = 0 }, ErrInvalidRate},
		{"negative duration", func(c *Config) { c.Clock.Duration = -time.Second }, ErrInvalidDuration},
		{"negative busy timeout", func(c *Config) { c.Store.BusyTimeout = -time.Second }, ErrInvalidBusyTimeout},
		{"zero steps", func(c *Config) { c.Engine.MaxSteps = 0 }, ErrInvalidMaxSteps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	t.Run("negative steps disables quota", func(t *testing.T) {
		cfg := Default()
		cfg.Engine.MaxSteps = -1
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  loop_breaking: true
log:
  level: debug
clock:
  duration: 2s
`)
	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)

	assert.True(t, cfg.Engine.LoopBreaking)
	assert.Equal(t, 1000, cfg.Engine.MaxSteps, "absent keys keep defaults")
	assert.Equal(t, LogLevelDebug, cfg.Log.Level)
	assert.Equal(t, LogFormatText, cfg.Log.Format)
	assert.Equal(t, 2*time.Second, cfg.Clock.Duration)
	assert.Equal(t, 60.0, cfg.Clock.Rate)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "engine:\n  max_stepz: 10\n")
	_, err := LoadWithEnv(path, noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_stepz")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), noEnv)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := LoadWithEnv(writeConfig(t, ""), noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")
	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"SCENECORE_MAX_STEPS":     "-1",
		"SCENECORE_LOOP_BREAKING": "true",
		"SCENECORE_LOG_LEVEL":     "DEBUG",
		"SCENECORE_LOG_FORMAT":    "json",
		"SCENECORE_DB":            "trace.db",
		"SCENECORE_RATE":          "30",
		"SCENECORE_DURATION":      "500ms",
		"SCENECORE_BUSY_TIMEOUT":  "2s",
	}))
	require.NoError(t, err)

	assert.Equal(t, -1, cfg.Engine.MaxSteps)
	assert.True(t, cfg.Engine.LoopBreaking)
	assert.Equal(t, LogLevelDebug, cfg.Log.Level, "env wins over file")
	assert.Equal(t, LogFormatJSON, cfg.Log.Format)
	assert.Equal(t, "trace.db", cfg.Store.Path)
	assert.Equal(t, 30.0, cfg.Clock.Rate)
	assert.Equal(t, 500*time.Millisecond, cfg.Clock.Duration)
	assert.Equal(t, 2*time.Second, cfg.Store.BusyTimeout)
}

func TestEnvironmentOverrideErrors(t *testing.T) {
	for _, key := range []string{"SCENECORE_MAX_STEPS", "SCENECORE_LOOP_BREAKING", "SCENECORE_RATE", "SCENECORE_DURATION", "SCENECORE_BUSY_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			_, err := LoadWithEnv("", envMap(map[string]string{key: "garbage"}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadUsesProcessEnvironment(t *testing.T) {
	t.Setenv("SCENECORE_LOG_FORMAT", "json")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, LogFormatJSON, cfg.Log.Format)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("clock:\n  rate: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval())

	_, err = Parse([]byte("clock:\n  rate: -5\n"))
	assert.ErrorIs(t, err, ErrInvalidRate)
}
