package logging

import (
	"io"
	"log/slog"
	"os"
)

// LogLevel is a thin enum for user friendly level configuration decoupled
// from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger defines the minimal structured logging interface used across the
// runtime. Users can provide their own implementation or use the built-in
// slog adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// New builds a Logger writing to stderr at the given level. Format is "text"
// or "json" (default json).
func New(level LogLevel, format string) Logger {
	return NewWithOutput(level, format, os.Stderr)
}

// NewWithOutput builds a Logger writing to w.
func NewWithOutput(level LogLevel, format string, w io.Writer) Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &SlogAdapter{Logger: slog.New(handler)}
}

// NoOpLogger discards all messages. The default for components constructed
// without a logger, so logging never becomes a hidden dependency.
type NoOpLogger struct{}

// Debug discards the message.
func (NoOpLogger) Debug(string, ...any) {}

// Info discards the message.
func (NoOpLogger) Info(string, ...any) {}

// Warn discards the message.
func (NoOpLogger) Warn(string, ...any) {}

// Error discards the message.
func (NoOpLogger) Error(string, ...any) {}

// contextual decorates a Logger with attributes attached to every entry.
type contextual struct {
	base Logger
	args []any
}

func (c *contextual) with(msgArgs []any) []any {
	out := make([]any, 0, len(c.args)+len(msgArgs))
	out = append(out, c.args...)
	return append(out, msgArgs...)
}

func (c *contextual) Debug(msg string, args ...any) { c.base.Debug(msg, c.with(args)...) }
func (c *contextual) Info(msg string, args ...any)  { c.base.Info(msg, c.with(args)...) }
func (c *contextual) Warn(msg string, args ...any)  { c.base.Warn(msg, c.with(args)...) }
func (c *contextual) Error(msg string, args ...any) { c.base.Error(msg, c.with(args)...) }

// With returns a Logger that prepends the given key/value attributes to
// every log entry.
func With(l Logger, args ...any) Logger {
	if l == nil {
		l = NoOpLogger{}
	}
	return &contextual{base: l, args: args}
}

// WithAgent scopes a logger to one agent.
func WithAgent(l Logger, agentID string) Logger { return With(l, "agent_id", agentID) }

// WithCompany scopes a logger to one company.
func WithCompany(l Logger, companyID string) Logger { return With(l, "company_id", companyID) }

// WithSignal scopes a logger to one signal exchange.
func WithSignal(l Logger, signalID, schemaID string) Logger {
	return With(l, "signal_id", signalID, "schema_id", schemaID)
}
