// Package logging provides structured logging for the orchestrator,
// backed by log/slog. All user-facing progress messages (the busy-edge
// "Rebuilding code…" / "Done building code" lines required by spec §4.1
// and §4.6) as well as internal diagnostics flow through this package so
// format (text vs JSON) and verbosity are controlled in one place.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel represents the orchestrator's logging verbosity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the structured logging interface used throughout the
// orchestrator.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Fatal(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// RebuildLogger implements Logger on top of log/slog.
type RebuildLogger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	fields    map[string]interface{}
}

// Config holds logger configuration.
type Config struct {
	Level      LogLevel
	Format     string // "json" or "text"
	Output     io.Writer
	TimeFormat string
	AddSource  bool
	Component  string
}

// DefaultConfig returns the default logger configuration: text format,
// info level, stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     "text",
		Output:     os.Stdout,
		TimeFormat: time.RFC3339,
		AddSource:  true,
	}
}

// New creates a structured logger from the given configuration. A nil
// config falls back to DefaultConfig.
func New(config *Config) *RebuildLogger {
	if config == nil {
		config = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level:     slog.Level(config.Level - 1), // align LevelInfo=1 with slog's LevelInfo=0
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &RebuildLogger{
		logger:    slog.New(handler),
		level:     config.Level,
		component: config.Component,
		fields:    make(map[string]interface{}),
	}
}

func (l *RebuildLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	if l.level > LevelDebug {
		return
	}
	l.log(ctx, slog.LevelDebug, nil, msg, fields...)
}

func (l *RebuildLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	if l.level > LevelInfo {
		return
	}
	l.log(ctx, slog.LevelInfo, nil, msg, fields...)
}

func (l *RebuildLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	if l.level > LevelWarn {
		return
	}
	l.log(ctx, slog.LevelWarn, err, msg, fields...)
}

func (l *RebuildLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	if l.level > LevelError {
		return
	}
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

// Fatal logs at error level. It does not call os.Exit; the caller decides
// how to react to a fatal condition (per spec §7, only ConfigError at
// startup is actually fatal to the process).
func (l *RebuildLogger) Fatal(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

// With returns a derived logger carrying the given additional fields.
func (l *RebuildLogger) With(fields ...interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		newFields[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			newFields[key] = fields[i+1]
		}
	}
	return &RebuildLogger{logger: l.logger, level: l.level, component: l.component, fields: newFields}
}

// WithComponent returns a derived logger tagged with the given component
// name (e.g. "scheduler", "cdkstate").
func (l *RebuildLogger) WithComponent(component string) Logger {
	return &RebuildLogger{logger: l.logger, level: l.level, component: component, fields: l.fields}
}

func (l *RebuildLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields ...interface{}) {
	if l.logger == nil {
		fmt.Fprintf(os.Stderr, "[ERROR] logger is nil - message: %s\n", msg)
		return
	}

	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields)/2+3)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		attrs = append(attrs, slog.String("error_type", fmt.Sprintf("%T", err)))
	}
	for k, v := range l.fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok && key != "" {
			value := fields[i+1]
			if str, isString := value.(string); isString {
				value = SanitizeForLog(str)
			}
			attrs = append(attrs, slog.Any(key, value))
		}
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(attrs...)

	if handler := l.logger.Handler(); handler != nil {
		if handleErr := handler.Handle(ctx, record); handleErr != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] failed to write log: %v - original message: %s\n", handleErr, msg)
		}
	}
}

// MultiLogger fans out to multiple Loggers: every call is forwarded to
// each of them in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to every given destination.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	for _, l := range m.loggers {
		l.Debug(ctx, msg, fields...)
	}
}

func (m *MultiLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	for _, l := range m.loggers {
		l.Info(ctx, msg, fields...)
	}
}

func (m *MultiLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, l := range m.loggers {
		l.Warn(ctx, err, msg, fields...)
	}
}

func (m *MultiLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, l := range m.loggers {
		l.Error(ctx, err, msg, fields...)
	}
}

func (m *MultiLogger) Fatal(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, l := range m.loggers {
		l.Fatal(ctx, err, msg, fields...)
	}
}

func (m *MultiLogger) With(fields ...interface{}) Logger {
	next := make([]Logger, len(m.loggers))
	for i, l := range m.loggers {
		next[i] = l.With(fields...)
	}
	return &MultiLogger{loggers: next}
}

func (m *MultiLogger) WithComponent(component string) Logger {
	next := make([]Logger, len(m.loggers))
	for i, l := range m.loggers {
		next[i] = l.WithComponent(component)
	}
	return &MultiLogger{loggers: next}
}

// PerfLogger times a single operation and logs its duration on End.
type PerfLogger struct {
	Logger
	startTime time.Time
}

// StartOperation begins timing operation, tagging all of its log lines.
func (l *RebuildLogger) StartOperation(operation string) *PerfLogger {
	return &PerfLogger{Logger: l.With("operation", operation), startTime: time.Now()}
}

// End logs successful completion with elapsed duration.
func (p *PerfLogger) End(ctx context.Context) {
	d := time.Since(p.startTime)
	p.Info(ctx, "operation completed", "duration_ms", d.Milliseconds())
}

// EndWithError logs failed completion with elapsed duration.
func (p *PerfLogger) EndWithError(ctx context.Context, err error) {
	d := time.Since(p.startTime)
	p.Error(ctx, err, "operation failed", "duration_ms", d.Milliseconds())
}

// SanitizeForLog redacts values that look like secrets and truncates very
// long strings before they reach a log line (child-process output and file
// paths both flow through here).
func SanitizeForLog(data string) string {
	sensitive := []string{"password", "token", "secret", "authorization"}
	lower := strings.ToLower(data)
	for _, word := range sensitive {
		if strings.Contains(lower, word) {
			return "[REDACTED]"
		}
	}
	if len(data) > 1000 {
		return data[:1000] + "...[TRUNCATED]"
	}
	return data
}

// NewTestLogger returns a Logger that discards output, for use in tests
// that need a non-nil Logger but no assertions on what was logged.
func NewTestLogger() Logger {
	return New(&Config{Level: LevelDebug, Format: "text", Output: io.Discard})
}
