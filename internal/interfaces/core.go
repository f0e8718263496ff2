// Package interfaces provides core abstractions for the rebuild orchestrator.
// These interfaces decouple the control loop from its collaborators
// (watcher, scheduler, builders, checkers, status server) so each can be
// exercised and mocked independently.
package interfaces

import (
	"context"
	"time"

	"github.com/conneroisu/rebuildctl/internal/types"
)

// FileFilter defines the interface for filtering files the watcher reports.
type FileFilter interface {
	ShouldInclude(path string) bool
}

// FileFilterFunc is the concrete file filter function type that implements FileFilter.
type FileFilterFunc func(path string) bool

// ShouldInclude implements the FileFilter interface.
func (f FileFilterFunc) ShouldInclude(path string) bool {
	return f(path)
}

// EventType represents the type of file system change.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a file change event.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// ChangeHandlerFunc is the concrete change handler function type.
type ChangeHandlerFunc func(events []ChangeEvent) error

// FileWatcher defines the interface for monitoring file system changes,
// implemented by internal/watcher.FileWatcher.
type FileWatcher interface {
	// AddPath adds a path to watch.
	AddPath(path string) error

	// RemovePath stops watching a path, used by the Watch-Set Manager when
	// an entry point's input file set shrinks.
	RemovePath(path string) error

	// Start begins watching with the given context.
	Start(ctx context.Context) error

	// Stop stops watching and cleans up resources.
	Stop() error

	// AddFilter adds a file filter function.
	AddFilter(filter FileFilter)

	// AddHandler adds a change handler function.
	AddHandler(handler ChangeHandlerFunc)

	// AddRecursive adds a recursive path to watch.
	AddRecursive(root string) error
}

// TaskQueue defines the interface for the Handler Build Scheduler's
// priority queue, implemented by internal/scheduler.BuildQueue.
type TaskQueue interface {
	// Enqueue adds a low-priority build task to the queue.
	Enqueue(task interface{}) error

	// EnqueuePriority adds a high-priority build task, preempting
	// low-priority work already queued for the same runtime class.
	EnqueuePriority(task interface{}) error

	// GetNextTask returns a channel for receiving tasks, draining the
	// priority channel before the regular one.
	GetNextTask() <-chan interface{}

	// PublishResult publishes a build result.
	PublishResult(result interface{}) error

	// GetResults returns a channel for receiving results.
	GetResults() <-chan interface{}

	// Close shuts down the queue.
	Close()
}

// WorkerManager defines the interface for managing the bounded go-like
// builder worker pool.
type WorkerManager interface {
	// StartWorkers begins worker goroutines with the given context and queue.
	StartWorkers(ctx context.Context, queue TaskQueue)

	// StopWorkers gracefully shuts down all workers.
	StopWorkers()

	// SetWorkerCount adjusts the number of active workers (BUILDER_CONCURRENCY).
	SetWorkerCount(count int)
}

// Builder defines the interface for invoking a single runtime's build
// tool (go build, node bundler, python no-op), implemented per-runtime in
// internal/builders.
type Builder interface {
	// Build compiles the entry point and returns the resulting artifact.
	Build(ctx context.Context, ep *types.EntryPoint) (types.Artifact, error)

	// Runtime reports which runtime class this builder handles.
	Runtime() types.Runtime
}

// ManagedProcessLauncher starts a long-lived lint or type-check process for
// a source path, implemented by internal/checker. files is the caller's
// already-filtered and gated set of input files to run the process over
// (e.g. lint's .ts/.js-excluding-node_modules filter, or type-check's .ts
// filter) — the launcher itself does no filtering.
type ManagedProcessLauncher interface {
	Launch(ctx context.Context, sourcePath *types.SourcePath, files []string) (types.ManagedProcess, error)
}
