// Package logger configures structured logging for the Scribe server.
// Logs go to stderr as JSON by default; text format is available for
// local development.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger writing to stderr.
// level is one of "debug", "info", "warn", "error" (default info);
// format is "json" or "text" (default json).
func New(level, format string) *slog.Logger {
	return NewWithOutput(os.Stderr, level, format)
}

// NewWithOutput builds a slog.Logger writing to w. Useful for testing.
func NewWithOutput(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
