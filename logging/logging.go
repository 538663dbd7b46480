// Package logging builds the slog logger shared by menusound components.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/milk9111/menusound/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	Debug  bool
}

// New constructs a slog logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates a logger from the log section of cfg.
func NewFromConfig(w io.Writer, cfg config.Log, debug bool) (*slog.Logger, error) {
	return New(w, Options{Level: cfg.Level, Format: cfg.Format, Debug: debug})
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
