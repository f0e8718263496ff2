package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the error kinds of spec §7. Every non-fatal kind
// still flows through RebuildError so the orchestrator's error handler can
// route it uniformly; only ErrorTypeConfig is ever fatal, and only at
// startup.
type ErrorType string

const (
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeBuild          ErrorType = "build"
	ErrorTypeStaleChecker   ErrorType = "stale_checker"
	ErrorTypeSynthCancelled ErrorType = "synth_cancelled"
	ErrorTypeWatcher        ErrorType = "watcher"
	ErrorTypeMetafile       ErrorType = "metafile"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeInternal       ErrorType = "internal"
)

// RebuildError is a structured error type carrying enough context for the
// orchestrator's logger to report a useful, consistent message regardless
// of which subsystem raised it.
type RebuildError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	EntryPoint  string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *RebuildError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.EntryPoint != "" {
		parts = append(parts, "entrypoint:"+e.EntryPoint)
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *RebuildError) Unwrap() error {
	return e.Cause
}

// Cancelled reports whether this error represents the `cancelled: true`
// marker a host's onReSynthApp callback may return, per the build
// contract's SynthCancelled error kind. Satisfies the orchestrator's
// cancelledSynthError interface.
func (e *RebuildError) Cancelled() bool {
	return e.Type == ErrorTypeSynthCancelled
}

// Is implements error comparison by type and code.
func (e *RebuildError) Is(target error) bool {
	var t *RebuildError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext attaches a context key/value pair.
func (e *RebuildError) WithContext(key string, value interface{}) *RebuildError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithEntryPoint attaches the entry point key string.
func (e *RebuildError) WithEntryPoint(key string) *RebuildError {
	e.EntryPoint = key
	return e
}

// NewConfigError creates a fatal-at-startup configuration error.
func NewConfigError(code, message string) *RebuildError {
	return &RebuildError{Type: ErrorTypeConfig, Code: code, Message: message, Recoverable: false}
}

// NewBuildError creates a per-entry-point build error.
func NewBuildError(code, message string, cause error) *RebuildError {
	return &RebuildError{Type: ErrorTypeBuild, Code: code, Message: message, Cause: cause, Recoverable: true}
}

// NewStaleCheckerError marks the expected, non-failure signal raised when a
// lint/type-check process is killed because its inputs went stale.
func NewStaleCheckerError(entryPoint string) *RebuildError {
	return &RebuildError{
		Type:        ErrorTypeStaleChecker,
		Code:        "STALE_CHECKER",
		Message:     "checker process terminated: inputs superseded",
		EntryPoint:  entryPoint,
		Recoverable: true,
	}
}

// NewSynthCancelledError marks a non-failure cancellation of an in-flight
// synth triggered by a new infra edit.
func NewSynthCancelledError() *RebuildError {
	return &RebuildError{
		Type:        ErrorTypeSynthCancelled,
		Code:        "SYNTH_CANCELLED",
		Message:     "synth cancelled by a newer infra edit",
		Recoverable: true,
	}
}

// NewWatcherError wraps a file-watcher failure. Always logged, never fatal.
func NewWatcherError(path string, cause error) *RebuildError {
	return &RebuildError{
		Type:        ErrorTypeWatcher,
		Code:        "WATCHER_ERROR",
		Message:     "file watcher error",
		Cause:       cause,
		FilePath:    path,
		Recoverable: true,
	}
}

// NewMetafileReadError wraps a bundler metafile parse failure. The entry
// point stays valid but loses file-change tracking until its next build.
func NewMetafileReadError(entryPoint, path string, cause error) *RebuildError {
	return &RebuildError{
		Type:        ErrorTypeMetafile,
		Code:        "METAFILE_READ_ERROR",
		Message:     "failed to read bundler metafile, treating input set as empty",
		Cause:       cause,
		EntryPoint:  entryPoint,
		FilePath:    path,
		Recoverable: true,
	}
}

// IsRecoverable reports whether err is a RebuildError marked recoverable.
func IsRecoverable(err error) bool {
	var re *RebuildError
	if errors.As(err, &re) {
		return re.Recoverable
	}
	return false
}

// IsBuildError reports whether err is a build-kind RebuildError.
func IsBuildError(err error) bool {
	var re *RebuildError
	if errors.As(err, &re) {
		return re.Type == ErrorTypeBuild
	}
	return false
}

// Logger is the minimal logging surface ErrorHandler depends on; satisfied
// by internal/logging.Logger.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler routes a RebuildError to the appropriate log level based on
// its kind, so callers don't need a switch at every call site.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates an ErrorHandler backed by logger.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err at the severity appropriate to its kind. Nil is a no-op.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var re *RebuildError
	if !errors.As(err, &re) {
		h.logger.Error(ctx, err, "unhandled error")
		return
	}

	switch re.Type {
	case ErrorTypeStaleChecker, ErrorTypeSynthCancelled:
		// Expected signals, not failures; no log at error/warn level.
	case ErrorTypeBuild, ErrorTypeWatcher, ErrorTypeMetafile:
		h.logger.Warn(ctx, re, string(re.Type)+" occurred", "code", re.Code, "entrypoint", re.EntryPoint)
	default:
		h.logger.Error(ctx, re, string(re.Type)+" occurred", "code", re.Code, "entrypoint", re.EntryPoint)
	}
}
