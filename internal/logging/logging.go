// Package logging builds the process wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	// FormatText is colored, human readable output for a console
	FormatText = "text"
	// FormatJSON is one JSON object per line for log shipping
	FormatJSON = "json"
)

// New creates a logger writing to w in the given format. The level is a
// Leveler so it can be changed after the configuration has been loaded.
func New(w io.Writer, format string, level slog.Leveler, app string) (*slog.Logger, error) {
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})

	case FormatJSON:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})

	default:
		return nil, fmt.Errorf("invalid log format %q (allowed: text, json)", format)
	}

	return slog.New(h).With(slog.String("app", app)), nil
}

// ParseLevel parses a level name as written in configuration files
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", s)
	}
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
