package courselookup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with courselookup-specific helpers so that build
// and query events use consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewLoggerFor builds a Logger writing to w. format is "json" or "text";
// level is one of debug, info, warn, error.
func NewLoggerFor(w io.Writer, format, level string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return NewLogger(slog.NewJSONHandler(w, opts))
	}
	return NewLogger(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
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

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// LogBuild logs the completion of an index build.
func (l *Logger) LogBuild(ctx context.Context, courses, instructors int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search index built empty",
			"error", err,
			"took", took,
		)
		return
	}
	l.InfoContext(ctx, "search index built",
		"courses", courses,
		"instructors", instructors,
		"took", took,
	)
}

// LogQuery logs a search query.
func (l *Logger) LogQuery(ctx context.Context, query string, courses, instructors int, took time.Duration) {
	l.DebugContext(ctx, "search completed",
		"query", query,
		"courses", courses,
		"instructors", instructors,
		"took", took,
	)
}
