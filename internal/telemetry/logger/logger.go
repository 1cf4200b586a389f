package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is json (default) or text.
	Format string
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
}

var level = new(slog.LevelVar)

// New builds a logger from cfg. Every logger built by New follows the
// level set last by New or SetLevel.
func New(cfg Config) (*slog.Logger, error) {
	lv, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level.Set(lv)

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redact,
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(NewContextHandler(h)), nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLevel changes the shared level.
func SetLevel(s string) error {
	lv, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(lv)
	return nil
}

// GetLevel returns the shared level name.
func GetLevel() string {
	switch lv := level.Level(); {
	case lv <= slog.LevelDebug:
		return "debug"
	case lv < slog.LevelWarn:
		return "info"
	case lv < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}
