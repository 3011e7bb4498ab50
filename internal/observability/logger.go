// Package observability wires the process logger. Output rotates through
// lumberjack when a log file is configured; otherwise a text handler on
// stdout.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the root slog.Logger. logPath empty means stdout only.
func NewLogger(logPath, level string) *slog.Logger {
	var w io.Writer = os.Stdout
	if logPath != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

// NewLoggerFromEnv honors CONTENTD_LOG_FILE and CONTENTD_LOG_LEVEL.
func NewLoggerFromEnv() *slog.Logger {
	return NewLogger(os.Getenv("CONTENTD_LOG_FILE"), os.Getenv("CONTENTD_LOG_LEVEL"))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
