package cli

import (
	"io"
	"log/slog"
	"strings"
)

// parseLogLevel maps a level name to a slog.Level, defaulting to info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("invalid log level, using info", "value", s)
		return slog.LevelInfo
	}
}

// setupLogging installs a text handler on w as the default logger.
func setupLogging(level string, w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)})
	slog.SetDefault(slog.New(handler))
}
