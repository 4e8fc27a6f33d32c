package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with application-specific functionality
type Logger struct {
	*slog.Logger
}

// New creates a JSON logger writing to stdout at the specified level.
func New(level string) *Logger {
	return NewWithFormat(level, "json")
}

// NewWithFormat creates a logger using the "json" or "text" handler.
func NewWithFormat(level, format string) *Logger {
	return newLogger(os.Stdout, level, format)
}

// NewWithWriter is NewWithFormat with a caller supplied destination.
func NewWithWriter(w io.Writer, level, format string) *Logger {
	return newLogger(w, level, format)
}

func newLogger(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// ParseLevel maps a level name to a slog level; unknown names map to info.
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

// With returns a child logger that always includes the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return newLogger(io.Discard, "error", "text")
}

// Default returns a logger with default settings
func Default() *Logger {
	return New("info")
}
