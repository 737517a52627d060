// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer ModelMeshLogger with contextual
// helpers (run, call, component) and domain specific logging helpers for
// model calls and retries.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
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

// ParseLogLevel maps a case-insensitive level name to a LogLevel.
// Unknown names fall back to LogLevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface for ModelMesh.
// This allows users to provide their own logger implementation or use the built-in adapters.
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

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// ModelMeshLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. It should be cheap to copy via With* methods.
//
// Its level methods take slog style key/value pairs, so it satisfies Logger.
type ModelMeshLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	runID     string
	callID    string
}

// LoggerConfig configures construction of a ModelMeshLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	RunID       string
	CallID      string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: true, CustomAttrs: map[string]any{}}
}

// NewLogger builds a ModelMeshLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *ModelMeshLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	ctx := map[string]any{}
	for k, v := range cfg.CustomAttrs {
		ctx[k] = v
	}
	return &ModelMeshLogger{logger: slog.New(handler), level: cfg.Level, context: ctx, component: cfg.Component, runID: cfg.RunID, callID: cfg.CallID}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *ModelMeshLogger) clone() *ModelMeshLogger {
	nl := *l
	nl.context = map[string]any{}
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *ModelMeshLogger) WithContext(key string, value any) *ModelMeshLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (queue, retry, stream, etc.).
func (l *ModelMeshLogger) WithComponent(c string) *ModelMeshLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithCall attaches run and call identifiers.
func (l *ModelMeshLogger) WithCall(runID, callID string) *ModelMeshLogger {
	nl := l.clone()
	nl.runID = runID
	nl.callID = callID
	return nl
}

func (l *ModelMeshLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+4)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.runID != "" {
		attrs = append(attrs, slog.String("run_id", l.runID))
	}
	if l.callID != "" {
		attrs = append(attrs, slog.String("call_id", l.callID))
	}
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *ModelMeshLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	attrs := l.buildAttrs()
	if len(args) > 0 {
		l.logger.Log(context.Background(), level, msg, append(attrsToArgs(attrs), args...)...)
		return
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// Debug logs at debug level.
func (l *ModelMeshLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *ModelMeshLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *ModelMeshLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *ModelMeshLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// LogModelCall records the outcome of one model call: latency, number of
// connection attempts and the terminal status (success, failure, abort).
func (l *ModelMeshLogger) LogModelCall(functionType, model string, tries int, dur time.Duration, status string, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs,
		slog.String("function_type", functionType),
		slog.String("model", model),
		slog.Int("tries", tries),
		slog.Duration("duration", dur),
		slog.String("status", status),
	)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	level := slog.LevelInfo
	msg := "Model call completed"
	switch status {
	case "failure":
		level = slog.LevelError
		msg = "Model call failed"
	case "abort":
		level = slog.LevelWarn
		msg = "Model call aborted"
	}
	if level < slogLevel(l.level) {
		return
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogRetry records a failed attempt that will be retried after delay.
func (l *ModelMeshLogger) LogRetry(try int, delay time.Duration, err error) {
	if l.level > LogLevelWarn {
		return
	}
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.Int("try", try), slog.Duration("delay", delay))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.LogAttrs(context.Background(), slog.LevelWarn, "Retrying model call", attrs...)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *ModelMeshLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("Operation completed", "operation", op, "duration", time.Since(start)) }
}

func attrsToArgs(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new ModelMeshLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *ModelMeshLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}
