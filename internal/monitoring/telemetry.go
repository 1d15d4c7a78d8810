// Package monitoring - telemetry.go records unhandled interactions to JSONL.
//
// DESIGN: Tracker appends one JSON object per line for every interaction that
// matched no hook. Operators read the file to find gaps in content coverage.
// Events are appended immediately for real-time visibility.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Tracker handles telemetry event recording to file and stdout.
type Tracker struct {
	config         TelemetryConfig
	unhandledPath  string
	unhandledCount int
	mu             sync.Mutex
}

// NewTracker creates a new telemetry tracker.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{
		config: cfg,
	}

	if !cfg.Enabled {
		return t, nil
	}

	if cfg.UnhandledLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.UnhandledLogPath), 0750); err != nil {
			return nil, err
		}
		t.unhandledPath = cfg.UnhandledLogPath
		if _, err := os.Stat(cfg.UnhandledLogPath); os.IsNotExist(err) {
			if f, err := os.Create(cfg.UnhandledLogPath); err == nil {
				f.Close()
			}
		}
	}

	return t, nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// RecordUnhandled records an unhandled interaction.
func (t *Tracker) RecordUnhandled(event UnhandledEvent) {
	if t == nil || !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	if t.config.LogToStdout {
		log.Info().
			Str("action", event.ActionType).
			Str("option", event.Option).
			Str("target", event.TargetKey).
			Msg("telemetry")
	}

	if t.unhandledPath != "" {
		if err := appendJSONL(t.unhandledPath, event); err != nil {
			log.Error().Err(err).Str("path", t.unhandledPath).Msg("telemetry: failed to write unhandled event")
		} else {
			t.unhandledCount++
		}
	}
}

// Count returns the number of events written.
func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unhandledCount
}

// Close logs a session summary.
func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.unhandledPath != "" && t.unhandledCount > 0 {
		log.Info().
			Str("path", t.unhandledPath).
			Int("events", t.unhandledCount).
			Msg("telemetry: session complete")
	}

	return nil
}
