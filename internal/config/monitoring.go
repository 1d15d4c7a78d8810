// Monitoring configuration - logging and telemetry settings.
//
// DESIGN: Separates logging (zerolog) from telemetry (JSONL files).
// Logging is for operators, telemetry records unhandled interactions so
// content gaps can be found after the fact.
package config

import (
	"fmt"

	"github.com/runeforge/hookgate/internal/monitoring"
)

// MonitoringConfig contains all monitoring settings.
type MonitoringConfig struct {
	// Logging settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json, console
	LogOutput string `yaml:"log_output"` // stdout, stderr, or file path

	// Telemetry settings
	TelemetryEnabled bool   `yaml:"telemetry_enabled"`  // Enable telemetry tracking
	UnhandledLogPath string `yaml:"unhandled_log_path"` // Path to unhandled interactions JSONL file
	LogToStdout      bool   `yaml:"log_to_stdout"`      // Also log telemetry to stdout
}

// LoggerConfig converts to the monitoring logger config.
func (m MonitoringConfig) LoggerConfig() monitoring.LoggerConfig {
	return monitoring.LoggerConfig{
		Level:  m.LogLevel,
		Format: m.LogFormat,
		Output: m.LogOutput,
	}
}

// TelemetryConfig converts to the monitoring telemetry config.
func (m MonitoringConfig) TelemetryConfig() monitoring.TelemetryConfig {
	return monitoring.TelemetryConfig{
		Enabled:          m.TelemetryEnabled,
		UnhandledLogPath: m.UnhandledLogPath,
		LogToStdout:      m.LogToStdout,
	}
}

// Validate checks monitoring settings.
func (m MonitoringConfig) Validate() error {
	switch m.LogFormat {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid monitoring.log_format %q (must be json or console)", m.LogFormat)
	}
	if m.TelemetryEnabled && m.UnhandledLogPath == "" {
		return fmt.Errorf("monitoring.unhandled_log_path is required when telemetry is enabled")
	}
	return nil
}
