// Package logger is the small slog surface the service uses: JSON output,
// a per-component attribute, and a silent variant for tests.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	*slog.Logger
}

// New builds the process logger. The level comes from LOG_LEVEL
// (debug, info, warn, error); unset or unknown means info.
func New() *Logger {
	return NewWithLevel(levelFromEnv())
}

// NewWithLevel builds a JSON logger at the given level.
func NewWithLevel(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// Named returns a child logger carrying a component attribute.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// NewForTesting returns a logger that discards everything.
func NewForTesting() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{Logger: slog.New(handler)}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
