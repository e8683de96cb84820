package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. format is "json" or "text"; unknown
// levels fall back to info.
func New(level, format string) *slog.Logger {
	return NewWriter(os.Stdout, level, format)
}

func NewWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Nop discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SDKLogger adapts a slog.Logger to the level-named logging hooks native
// SDK shells expose.
type SDKLogger struct {
	logger *slog.Logger
}

func NewSDKLogger(l *slog.Logger) *SDKLogger {
	return &SDKLogger{logger: l.With("source", "native")}
}

func (l *SDKLogger) Debug(message string) {
	l.logger.Debug(message)
}

func (l *SDKLogger) Info(message string) {
	l.logger.Info(message)
}

func (l *SDKLogger) Warning(message string) {
	l.logger.Warn(message)
}

func (l *SDKLogger) Error(message string) {
	l.logger.Error(message)
}
