// Package log provides structured logging for the pipeline stages.
//
// Stages receive a Logger rather than reaching for a global, so tests can
// substitute a TestLogger and assert on what was emitted. The default
// implementation forwards to log/slog, whose process-wide handler is installed
// by SetupLogger.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ComponentKey, "trainer",
//	    log.EstimatorIDKey, runID,
//	)
//	logger.Info("model evaluated",
//	    log.ModelNameKey, "random_forest",
//	    log.F1Key, 0.81,
//	)
package log

import (
	"context"
	"log/slog"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional key-value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it
	// is attached under ErrAttrKey so the handler can add its stack trace.
	//
	//	logger.Error("model fit failed", err, log.ModelNameKey, name)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type slogLogger struct {
	l *slog.Logger
}

// NewLogger adapts a *slog.Logger to the Logger interface.
func NewLogger(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

// GetLogger returns a Logger backed by the current slog default logger.
func GetLogger() Logger {
	return &slogLogger{l: slog.Default()}
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }

func (s *slogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	s.l.Error(msg, fields...)
}

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{l: s.l.With(fields...)}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, slog.Level(level))
}
