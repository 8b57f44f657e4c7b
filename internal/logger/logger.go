// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Setup returns a slog.Logger writing to w. Format "json" produces one JSON
// object per line; "text" produces human-readable output for terminals.
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case "text":
		handler := log.NewWithOptions(w, log.Options{
			Level:           log.Level(lvl),
			ReportTimestamp: true,
		})
		return slog.New(handler), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// SetupDefault installs the logger as slog's default. A nil writer means stdout.
func SetupDefault(w io.Writer, level, format string) error {
	if w == nil {
		w = os.Stdout
	}
	l, err := Setup(w, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(l)
	return nil
}

func parseLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return lvl, nil
}
