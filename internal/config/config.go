// Package config loads and validates the hook gateway configuration.
//
// DESIGN: All configuration comes from YAML files; required fields are
// validated rather than defaulted, so deployments stay explicit.
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - pipes.go:      Action pipe configs (re-exported from internal/pipes)
//   - scheduler.go:  Task scheduler config (re-exported from internal/scheduler)
//   - monitoring.go: Logging and telemetry settings
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the hook gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP / websocket server settings
	Scheduler  SchedulerConfig  `yaml:"scheduler"`  // Hook task scheduler
	Store      StoreConfig      `yaml:"store"`      // Quest progression store
	Pipes      PipesConfig      `yaml:"pipes"`      // Action pipes
	Content    ContentConfig    `yaml:"content"`    // Content manifests
	Monitoring MonitoringConfig `yaml:"monitoring"` // Logging and telemetry
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Max time to read request headers
	WriteTimeout time.Duration `yaml:"write_timeout"` // Max time to write a websocket frame
	WSPath       string        `yaml:"ws_path"`       // Websocket endpoint path, e.g. /ws
}

// StoreConfig contains quest progression store settings.
type StoreConfig struct {
	Type string `yaml:"type"` // Store type: "memory" or "sqlite"
	Path string `yaml:"path"` // SQLite database path
}

// ContentConfig lists content manifests loaded into the hook registry at startup.
type ContentConfig struct {
	Manifests []string `yaml:"manifests"`
}

// envPattern matches ${VAR:-default} or ${VAR}.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults expands environment variables with support for default values.
// Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
// Returns an error if the file doesn't exist or is invalid.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes.
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Lets operators change log level or the unhandled log path without
// editing the config file.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("HOOKGATE_LOG_LEVEL"); level != "" {
		c.Monitoring.LogLevel = level
	}

	if path := os.Getenv("HOOKGATE_UNHANDLED_LOG"); path != "" {
		c.Monitoring.UnhandledLogPath = path
		c.Monitoring.TelemetryEnabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.Server.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}
	if c.Server.WSPath == "" || c.Server.WSPath[0] != '/' {
		return fmt.Errorf("server.ws_path must start with '/'")
	}

	// Store validation
	switch c.Store.Type {
	case "":
		return fmt.Errorf("store.type is required")
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required when store.type=sqlite")
		}
	default:
		return fmt.Errorf("unknown store.type %q, must be 'memory' or 'sqlite'", c.Store.Type)
	}

	if err := c.Scheduler.Validate(); err != nil {
		return err
	}

	if err := c.Pipes.Validate(); err != nil {
		return err
	}

	if err := c.Monitoring.Validate(); err != nil {
		return err
	}

	return nil
}
