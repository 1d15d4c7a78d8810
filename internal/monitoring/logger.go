// Package monitoring - logger.go builds the process logger from config.
//
// DESIGN: One configured zerolog logger per process:
//   - Global() installs it as zerolog/log's logger for package-level logging
//   - Component() hands tagged children to parts that take an injected logger
//     (pipes log unhandled interactions through one)
//   - Close() releases the log file when output is a path
package monitoring

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Context keys for request tracking.
type contextKey string

const RequestIDKey contextKey = "request_id"

// Logger is the configured process logger.
type Logger struct {
	zl   zerolog.Logger
	file *os.File // nil unless output is a file path
}

// New creates a Logger with the given configuration. An unknown or empty level
// means info. If a file output cannot be opened, logs go to stdout.
func New(cfg LoggerConfig) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out, file := openOutput(cfg.Output)
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zl := zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return &Logger{zl: zl, file: file}
}

// Global creates a Logger and installs it as the zerolog/log logger.
func Global(cfg LoggerConfig) *Logger {
	l := New(cfg)
	log.Logger = l.zl
	return l
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zl.With().Str("component", name).Logger()
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func openOutput(output string) (io.Writer, *os.File) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log output %s: %v, using stdout\n", output, err)
		return os.Stdout, nil
	}
	return f, f
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestIDContext returns a new context with the request ID.
func WithRequestIDContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
