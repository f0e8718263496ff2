// Package scheduler implements the Handler Build Scheduler: a priority
// queue of pending builds plus a dispatcher that routes each task to the
// concurrency strategy appropriate for its runtime (a bounded worker pool
// for Go and Python tasks, unbounded goroutines for Node; the Python
// builder is a no-op that returns at once).
//
// The queue shape is grounded on the teacher's internal/build.TaskQueueManager:
// separate tasks/priority/results channels, with GetNextTask draining the
// priority channel first via a merge goroutine.
package scheduler

import (
	"errors"
	"sync"

	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/types"
)

// BuildTask represents one pending build request for an entry point.
//
// dispatched/superseded let the orchestrator escalate a task still
// sitting in the queue (not yet picked up by a worker) to the front of
// the line: it marks the stale task superseded and enqueues a fresh one
// on the priority channel, rather than waiting for the stale LOW build to
// run to completion first. A worker checks MarkDispatched immediately
// before building and silently drops a superseded task instead of
// building it and publishing a duplicate result.
type BuildTask struct {
	EntryPoint *types.EntryPoint
	Priority   types.Priority

	mu         sync.Mutex
	dispatched bool
	superseded bool
}

// MarkSupersededIfQueued marks the task stale if no worker has started
// building it yet, returning true on success. Returns false if a worker
// already called MarkDispatched, meaning the build is already running and
// must be left to finish.
func (t *BuildTask) MarkSupersededIfQueued() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dispatched {
		return false
	}
	t.superseded = true
	return true
}

// MarkDispatched records that a worker is about to build this task,
// returning false if it was superseded first — in which case the caller
// must skip the build entirely rather than run it and publish a result.
func (t *BuildTask) MarkDispatched() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.superseded {
		return false
	}
	t.dispatched = true
	return true
}

// BuildResult represents the outcome of a completed build.
type BuildResult struct {
	EntryPoint *types.EntryPoint
	// DispatchedPriority is the priority the task carried when it was
	// dispatched, so the orchestrator can tell whether the entry point
	// was dirtied again while the build was in flight.
	DispatchedPriority types.Priority
	// PreviousInputFiles is a snapshot of EntryPoint.InputFiles taken
	// before the builder ran. Node-like builders reassign InputFiles in
	// place to the freshly-parsed metafile set during Build(), so by the
	// time the result reaches the orchestrator ep.InputFiles already *is*
	// the new set; diffing against it requires this pre-build copy.
	PreviousInputFiles map[string]struct{}
	Artifact           types.Artifact
	Err                error
}

// QueueError distinguishes queue-specific failures from build errors.
type QueueError struct {
	Op      string
	Message string
}

func (e *QueueError) Error() string { return e.Op + ": " + e.Message }

var (
	ErrQueueClosed     = &QueueError{Op: "queue", Message: "queue is closed"}
	ErrQueueFull       = &QueueError{Op: "queue", Message: "queue is full"}
	ErrInvalidTaskType = &QueueError{Op: "enqueue", Message: "invalid task type, expected *BuildTask"}
)

// QueueStats reports instantaneous queue depths.
type QueueStats struct {
	Pending    int
	PriorityPending int
	ResultsPending  int
}

// BuildQueue is the scheduler's priority queue, implementing
// interfaces.TaskQueue over *BuildTask/*BuildResult.
type BuildQueue struct {
	tasks    chan interface{}
	priority chan interface{}
	results  chan interface{}

	mu     sync.RWMutex
	closed bool

	nextCh chan interface{}
	once   sync.Once
}

var _ interfaces.TaskQueue = (*BuildQueue)(nil)

// NewBuildQueue creates a build queue with the given channel buffer sizes.
func NewBuildQueue(taskBufferSize, resultBufferSize, priorityBufferSize int) *BuildQueue {
	return &BuildQueue{
		tasks:    make(chan interface{}, taskBufferSize),
		priority: make(chan interface{}, priorityBufferSize),
		results:  make(chan interface{}, resultBufferSize),
		nextCh:   make(chan interface{}),
	}
}

// Enqueue adds a regular-priority build task.
func (q *BuildQueue) Enqueue(task interface{}) error {
	if _, ok := task.(*BuildTask); !ok {
		return ErrInvalidTaskType
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// EnqueuePriority adds a high-priority build task (on-demand requests,
// infra-triggered rebuilds), drained ahead of regular tasks.
func (q *BuildQueue) EnqueuePriority(task interface{}) error {
	if _, ok := task.(*BuildTask); !ok {
		return ErrInvalidTaskType
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.priority <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// GetNextTask returns a channel that yields tasks, priority first. The
// merge goroutine is started lazily on first call.
func (q *BuildQueue) GetNextTask() <-chan interface{} {
	q.once.Do(func() {
		go q.mergeLoop()
	})
	return q.nextCh
}

func (q *BuildQueue) mergeLoop() {
	defer close(q.nextCh)
	for {
		select {
		case t, ok := <-q.priority:
			if !ok {
				return
			}
			q.nextCh <- t
			continue
		default:
		}

		select {
		case t, ok := <-q.priority:
			if !ok {
				return
			}
			q.nextCh <- t
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			q.nextCh <- t
		}
	}
}

// PublishResult publishes a completed build's outcome.
func (q *BuildQueue) PublishResult(result interface{}) error {
	if _, ok := result.(*BuildResult); !ok {
		return errors.New("scheduler: invalid result type, expected *BuildResult")
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.results <- result:
		return nil
	default:
		return ErrQueueFull
	}
}

// GetResults returns the channel of completed build results.
func (q *BuildQueue) GetResults() <-chan interface{} {
	return q.results
}

// Close shuts the queue down. Safe to call more than once.
func (q *BuildQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.tasks)
	close(q.priority)
	close(q.results)
}

// Stats reports current channel depths.
func (q *BuildQueue) Stats() QueueStats {
	return QueueStats{
		Pending:         len(q.tasks),
		PriorityPending: len(q.priority),
		ResultsPending:  len(q.results),
	}
}
