// Package monitoring provides logging, metrics, and unhandled-interaction
// telemetry for the hook gateway.
//
// FILES:
//   - logger.go:    zerolog setup
//   - metrics.go:   Atomic counters
//   - telemetry.go: JSONL record of unhandled interactions
//   - types.go:     Event and config types
package monitoring

// =============================================================================
// EVENTS
// =============================================================================

// UnhandledEvent records an interaction no hook handled.
type UnhandledEvent struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id,omitempty"`
	ActionType string `json:"action_type"`
	PlayerID   string `json:"player_id"`
	Option     string `json:"option"`
	TargetID   int    `json:"target_id"`
	TargetKey  string `json:"target_key"`
	TargetName string `json:"target_name,omitempty"`
	Position   string `json:"position"`
}

// =============================================================================
// CONFIG
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled          bool   `yaml:"enabled"`
	UnhandledLogPath string `yaml:"unhandled_log_path"`
	LogToStdout      bool   `yaml:"log_to_stdout"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}
