// Package logging configures structured logging for log/slog: colored
// output with tint for terminals, or JSON for log collectors.
//
// Usage:
//
//	logging.Setup(logging.Options{Level: "debug"})
//	logging.Setup(logging.Options{Level: "info", Format: "json"})
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Options selects the level and output format.
type Options struct {
	// Level is debug, info, warn or error (default: info).
	Level string
	// Format is "tint" (default) or "json".
	Format string
	// AddSource includes the calling file and line.
	AddSource bool
}

// Setup installs a handler built from opts as the slog default and returns
// the logger.
func Setup(opts Options) *slog.Logger {
	logger := New(os.Stderr, opts)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := ParseLevel(opts.Level)

	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: opts.AddSource,
		}))
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  opts.AddSource,
	}))
}

// ParseLevel maps a level name to a slog.Level; unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
