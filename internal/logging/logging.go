// Package logging configures the process-wide slog logger for CLI runs.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Setup installs a text handler at the requested level as the default
// slog logger. Level is one of debug, info, warn, error (case-insensitive).
func Setup(level string, output io.Writer) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", level)
	}
}
