package logger

import (
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/lmittmann/tint"
)

// DefaultPreviewLen bounds payload previews written to logs.
const DefaultPreviewLen = 200

func Setup(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// Preview truncates s to at most max bytes without splitting a rune.
func Preview(s string, max int) string {
	if max <= 0 {
		max = DefaultPreviewLen
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
