// Package config provides configuration loading for workflowd.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables. Every section has hardcoded defaults so the daemon runs with no
// config file at all.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete workflowd configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	Store        StoreConfig        `koanf:"store"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Router       RouterConfig       `koanf:"router"`
}

// ServerConfig identifies the MCP server implementation.
type ServerConfig struct {
	Name            string   `koanf:"name"`
	Version         string   `koanf:"version"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	ServiceName    string   `koanf:"service_name"`
	ExportInterval Duration `koanf:"export_interval"`
}

// StoreConfig controls the shared coordination store.
type StoreConfig struct {
	DefaultTTL    Duration `koanf:"default_ttl"`
	SweepInterval Duration `koanf:"sweep_interval"`
	SweepEnabled  bool     `koanf:"sweep_enabled"`
}

// OrchestratorConfig controls pipeline behavior.
type OrchestratorConfig struct {
	StageTimeout Duration `koanf:"stage_timeout"`
	MaxRetries   int      `koanf:"max_retries"`
}

// RouterConfig tunes the smart execution router's evidence windows.
type RouterConfig struct {
	DecisionWindow  Duration `koanf:"decision_window"`
	RetentionWindow Duration `koanf:"retention_window"`
	MinSamples      int      `koanf:"min_samples"`
}

// NewDefaultConfig returns configuration with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "workflowd",
			Version:         "0.1.0",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Endpoint:       "localhost:4318",
			ServiceName:    "workflowd",
			ExportInterval: Duration(15 * time.Second),
		},
		Store: StoreConfig{
			DefaultTTL:    Duration(time.Hour),
			SweepInterval: Duration(time.Minute),
			SweepEnabled:  true,
		},
		Orchestrator: OrchestratorConfig{
			StageTimeout: Duration(30 * time.Second),
			MaxRetries:   2,
		},
		Router: RouterConfig{
			DecisionWindow:  Duration(7 * 24 * time.Hour),
			RetentionWindow: Duration(30 * 24 * time.Hour),
			MinSamples:      5,
		},
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.ServiceName == "" {
			return fmt.Errorf("telemetry.service_name is required when telemetry is enabled")
		}
		if c.Telemetry.ExportInterval.Duration() <= 0 {
			return fmt.Errorf("telemetry.export_interval must be positive")
		}
	}

	if c.Store.DefaultTTL.Duration() <= 0 {
		return fmt.Errorf("store.default_ttl must be positive")
	}
	if c.Store.SweepEnabled && c.Store.SweepInterval.Duration() <= 0 {
		return fmt.Errorf("store.sweep_interval must be positive when sweeping is enabled")
	}

	if c.Orchestrator.StageTimeout.Duration() <= 0 {
		return fmt.Errorf("orchestrator.stage_timeout must be positive")
	}
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("orchestrator.max_retries cannot be negative")
	}

	if c.Router.MinSamples <= 0 {
		return fmt.Errorf("router.min_samples must be positive")
	}
	if c.Router.DecisionWindow.Duration() <= 0 {
		return fmt.Errorf("router.decision_window must be positive")
	}
	if c.Router.RetentionWindow.Duration() < c.Router.DecisionWindow.Duration() {
		return fmt.Errorf("router.retention_window cannot be shorter than router.decision_window")
	}

	return nil
}
