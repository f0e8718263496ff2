package scheduler

import (
	"context"
	"runtime"
	"sync"

	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/logging"
	"github.com/conneroisu/rebuildctl/internal/types"
)

// Dispatcher routes a drained BuildTask to the concurrency strategy that
// fits its runtime:
//   - Go: a bounded worker pool sized by BUILDER_CONCURRENCY (go build is
//     CPU- and memory-heavy; unbounded parallelism thrashes the machine).
//   - Node: unbounded goroutines, one per task. The bundler toolchain is
//     I/O-bound and cheap to run in parallel without a pool.
//   - Python: no build step exists. Python tasks travel through the same
//     queue as Go tasks and a pool worker runs the no-op Python builder,
//     which returns an artifact at once.
//
// This mirrors the teacher's WorkerManager/BuildPipeline split between a
// bounded pool (worker_manager.go) and ungated dispatch (pipeline.go),
// generalized to pick a strategy per runtime instead of per priority.
type Dispatcher struct {
	queue    *BuildQueue
	builders map[types.Runtime]interfaces.Builder
	logger   *logging.RebuildLogger

	workerCount int
	workerWG    sync.WaitGroup
	stopCh      chan struct{}

	nodeWG sync.WaitGroup

	mu      sync.Mutex
	running bool
}

var _ interfaces.WorkerManager = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher with the given per-runtime builders.
// workerCount <= 0 defaults to runtime.NumCPU(), matching BUILDER_CONCURRENCY.
func NewDispatcher(builders map[types.Runtime]interfaces.Builder, workerCount int, logger *logging.RebuildLogger) *Dispatcher {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &Dispatcher{
		builders:    builders,
		workerCount: workerCount,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// StartWorkers begins the bounded worker pool that drains the queue (Go
// and Python tasks; a Node task that reaches the queue is handed straight
// to its own goroutine). queue is retained for PublishResult calls from
// workers.
func (d *Dispatcher) StartWorkers(ctx context.Context, queue interfaces.TaskQueue) {
	bq, ok := queue.(*BuildQueue)
	if !ok {
		if d.logger != nil {
			d.logger.Error(ctx, nil, "scheduler: StartWorkers given non-*BuildQueue, refusing to start")
		}
		return
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.queue = bq
	d.stopCh = make(chan struct{})
	d.mu.Unlock()

	for i := 0; i < d.workerCount; i++ {
		d.workerWG.Add(1)
		go d.goWorker(ctx, i)
	}
}

// StopWorkers signals all workers to exit and waits for them to drain.
func (d *Dispatcher) StopWorkers() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.workerWG.Wait()
	d.nodeWG.Wait()
}

// SetWorkerCount adjusts BUILDER_CONCURRENCY. Takes effect on the next
// StartWorkers call; it does not resize an already-running pool.
func (d *Dispatcher) SetWorkerCount(count int) {
	if count <= 0 {
		count = runtime.NumCPU()
	}
	d.mu.Lock()
	d.workerCount = count
	d.mu.Unlock()
}

// goWorker pulls tasks from the queue and routes them by runtime. Go and
// Python tasks are built on this worker, so each occupies a pool slot while
// it builds; a Node task is handed to an ungated goroutine.
func (d *Dispatcher) goWorker(ctx context.Context, id int) {
	defer d.workerWG.Done()
	next := d.queue.GetNextTask()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case raw, ok := <-next:
			if !ok {
				return
			}
			task, ok := raw.(*BuildTask)
			if !ok {
				continue
			}
			d.dispatch(ctx, task)
		}
	}
}

// DispatchNode runs a Node build task immediately in its own goroutine,
// bypassing the tasks/priority channels entirely. A task enqueued through
// the shared queue only gets dequeued once a goWorker goroutine is free to
// read the channel, so a Go build occupying every worker slot can delay
// even dequeuing a Node task behind it; calling DispatchNode directly
// guarantees a Node build starts the moment it's requested, matching the
// unbounded-parallelism guarantee the bounded Go pool doesn't give. The
// orchestrator calls this instead of Enqueue/EnqueuePriority for
// Node-runtime entry points; BuildQueue-routed Node tasks (e.g. a test
// exercising the queue directly) still fall through dispatch's switch
// below for the same unbounded-goroutine treatment.
func (d *Dispatcher) DispatchNode(ctx context.Context, task *BuildTask) {
	d.nodeWG.Add(1)
	go func() {
		defer d.nodeWG.Done()
		d.build(ctx, task)
	}()
}

func (d *Dispatcher) dispatch(ctx context.Context, task *BuildTask) {
	switch task.EntryPoint.Runtime {
	case types.RuntimeNode:
		d.nodeWG.Add(1)
		go func() {
			defer d.nodeWG.Done()
			d.build(ctx, task)
		}()
	default:
		d.build(ctx, task)
	}
}

func (d *Dispatcher) build(ctx context.Context, task *BuildTask) {
	if !task.MarkDispatched() {
		// Superseded by a higher-priority re-enqueue while it was still
		// sitting in the queue; the fresh task takes its place and this
		// one is dropped without publishing a result.
		return
	}
	builder, ok := d.builders[task.EntryPoint.Runtime]
	result := &BuildResult{
		EntryPoint:         task.EntryPoint,
		DispatchedPriority: task.Priority,
		PreviousInputFiles: snapshotInputFiles(task.EntryPoint.InputFiles),
	}
	if !ok {
		result.Err = unknownRuntimeError(task.EntryPoint.Runtime)
	} else {
		artifact, err := builder.Build(ctx, task.EntryPoint)
		result.Artifact = artifact
		result.Err = err
	}
	if err := d.queue.PublishResult(result); err != nil && d.logger != nil {
		d.logger.Error(ctx, err, "scheduler: failed to publish build result")
	}
}

func unknownRuntimeError(r types.Runtime) error {
	return &QueueError{Op: "build", Message: "no builder registered for runtime " + r.String()}
}

// snapshotInputFiles copies an entry point's input-file set before a
// builder runs, since a builder (e.g. NodeBuilder) may reassign the
// original map in place rather than mutating it.
func snapshotInputFiles(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
