package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "workflowd", cfg.Server.Name)
	assert.Equal(t, time.Hour, cfg.Store.DefaultTTL.Duration())
	assert.Equal(t, 7*24*time.Hour, cfg.Router.DecisionWindow.Duration())
	assert.Equal(t, 30*24*time.Hour, cfg.Router.RetentionWindow.Duration())
	assert.Equal(t, 5, cfg.Router.MinSamples)
}

func TestLoadBytes_OverridesDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
logging:
  level: debug
  format: console
store:
  default_ttl: 30m
router:
  min_samples: 10
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 30*time.Minute, cfg.Store.DefaultTTL.Duration())
	assert.Equal(t, 10, cfg.Router.MinSamples)

	// Untouched sections keep their defaults.
	assert.Equal(t, "workflowd", cfg.Server.Name)
	assert.Equal(t, 2, cfg.Orchestrator.MaxRetries)
}

func TestLoadBytes_InvalidYAML(t *testing.T) {
	_, err := LoadBytes([]byte("logging: [not a map"))
	assert.Error(t, err)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600))
	t.Setenv("WORKFLOWD_LOGGING_LEVEL", "error")
	t.Setenv("WORKFLOWD_ROUTER_MIN_SAMPLES", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Router.MinSamples)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"empty server name", func(c *Config) { c.Server.Name = "" }},
		{"zero store ttl", func(c *Config) { c.Store.DefaultTTL = 0 }},
		{"zero stage timeout", func(c *Config) { c.Orchestrator.StageTimeout = 0 }},
		{"negative retries", func(c *Config) { c.Orchestrator.MaxRetries = -1 }},
		{"zero min samples", func(c *Config) { c.Router.MinSamples = 0 }},
		{"retention under decision window", func(c *Config) {
			c.Router.RetentionWindow = Duration(time.Hour)
		}},
		{"telemetry enabled without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5m")), "negative durations rejected")
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestDuration_MarshalText(t *testing.T) {
	d := Duration(150 * time.Millisecond)
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "150ms", string(text))
}
