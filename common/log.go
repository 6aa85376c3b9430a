package common

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the key-value logger accepted by systems and the tracker.
type Logger interface {
	Debug(msg string, keyValues ...any)
	Info(msg string, keyValues ...any)
	Warn(msg string, keyValues ...any)
	Error(msg string, keyValues ...any)
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps an slog.Logger. A nil logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

// NewTextLogger writes text records at or above level ("debug", "info", "warn", "error").
func NewTextLogger(w io.Writer, level string) Logger {
	if w == nil {
		w = os.Stderr
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &slogLogger{logger: slog.New(h)}
}

func (l *slogLogger) Debug(msg string, keyValues ...any) { l.logger.Debug(msg, keyValues...) }
func (l *slogLogger) Info(msg string, keyValues ...any)  { l.logger.Info(msg, keyValues...) }
func (l *slogLogger) Warn(msg string, keyValues ...any)  { l.logger.Warn(msg, keyValues...) }
func (l *slogLogger) Error(msg string, keyValues ...any) { l.logger.Error(msg, keyValues...) }

// ParseLevel maps a config string to an slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

type nopLogger struct{}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
