// Package orchestrator owns the single control-loop goroutine that ties
// together the entry-point/source-path registries, the file index, the
// handler build scheduler, the on-demand request coordinator, the
// lint/type-check coordinator, the infra state machine, the watch-set
// manager, and the busy-status reporters. No other goroutine mutates any
// of that state; everything else communicates with the control loop
// through channels or by posting events, mirroring the teacher's
// service_orchestrator.go single-owner design generalized away from HTTP
// preview serving toward this domain's reconciliation loop.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/conneroisu/rebuildctl/internal/cdkstate"
	"github.com/conneroisu/rebuildctl/internal/checker"
	"github.com/conneroisu/rebuildctl/internal/entrypoint"
	"github.com/conneroisu/rebuildctl/internal/fileindex"
	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/logging"
	"github.com/conneroisu/rebuildctl/internal/ondemand"
	"github.com/conneroisu/rebuildctl/internal/scheduler"
	"github.com/conneroisu/rebuildctl/internal/sourcepath"
	"github.com/conneroisu/rebuildctl/internal/status"
	"github.com/conneroisu/rebuildctl/internal/types"
	"github.com/conneroisu/rebuildctl/internal/watchset"
)

// Config is the construction input described by the build contract's
// EXTERNAL INTERFACES section.
type Config struct {
	AppPath           string
	LambdaHandlers    []types.HandlerConfig
	CDKInputFiles     []string
	CDKChecksumData   map[string]string
	IsLintEnabled     bool
	IsTypeCheckEnabled bool

	OnReSynthApp  func(ctx context.Context) (*cdkstate.Manifest, error)
	OnReDeployApp func(ctx context.Context, checksumData map[string]string) error

	// OnBuildInfra performs the infra "Building" step: a black-box
	// transpile/compile of the CDK app, returning the refreshed set of
	// input files it read (for watch-set diffing) on success. Spec §4.4
	// names rebuild/synth/deploy as the machine's three phases but only
	// gives the host synth/deploy callbacks in its external-interfaces
	// section; OnBuildInfra resolves that gap the same way onReSynthApp
	// and onReDeployApp are supplied, and a nil value degrades the build
	// step to an always-succeeding no-op that leaves the infra input set
	// unchanged (suitable for infra code that ships untranspiled, e.g.
	// plain CloudFormation YAML with no build phase).
	OnBuildInfra func(ctx context.Context) ([]string, error)
}

// State is a point-in-time snapshot of orchestrator state, returned by
// GetState.
type State struct {
	Busy      bool
	InfraBusy bool
	InfraState cdkstate.State
}

// Orchestrator is the live rebuild orchestrator's core.
type Orchestrator struct {
	cfg Config

	entryPoints *entrypoint.Registry
	sourcePaths *sourcepath.Registry
	fileIndex   *fileindex.Index
	infra       *cdkstate.Machine

	queue      *scheduler.BuildQueue
	dispatcher *scheduler.Dispatcher
	checkerCo  *checker.Coordinator
	watchSet   *watchset.Manager
	watcher    interfaces.FileWatcher

	handlerReporter *status.Reporter
	infraReporter   *status.Reporter

	logger *logging.RebuildLogger

	infraInputFiles map[string]struct{}
	infraSrcPath    *types.SourcePath
	infraOpInFlight bool
	infraEvents     chan func(context.Context)

	// inFlightTasks tracks the scheduler.BuildTask currently enqueued (or
	// running) for each entry point with a build in flight, so a later
	// priority escalation can tell whether that task is still sitting in
	// the queue (and can be superseded and requeued at the front) or
	// already being built (and must be left to finish). Only ever
	// touched from the control-loop goroutine.
	inFlightTasks map[types.EntryPointKey]*scheduler.BuildTask

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	runCtx  context.Context
	wg      sync.WaitGroup
}

// New constructs an orchestrator from its dependencies. builders and
// launchers come pre-wired by the caller (cmd/wire.go), since they depend on runtime config (bin dirs, bundler
// scripts, lint command names) the core itself has no opinion about.
func New(
	cfg Config,
	watcher interfaces.FileWatcher,
	builders map[types.Runtime]interfaces.Builder,
	lintLauncher, typeCheckLauncher interfaces.ManagedProcessLauncher,
	workerCount int,
	logger *logging.RebuildLogger,
) *Orchestrator {
	queue := scheduler.NewBuildQueue(256, 256, 64)
	return &Orchestrator{
		cfg:             cfg,
		entryPoints:     entrypoint.New(),
		sourcePaths:     sourcepath.New(),
		fileIndex:       fileindex.New(),
		infra:           cdkstate.New(cfg.CDKChecksumData),
		queue:           queue,
		dispatcher:      scheduler.NewDispatcher(builders, workerCount, logger),
		checkerCo:       checker.New(lintLauncher, typeCheckLauncher, cfg.IsLintEnabled, cfg.IsTypeCheckEnabled, logger),
		watchSet:        watchset.New(watcher),
		watcher:         watcher,
		handlerReporter: status.New(),
		infraReporter:   status.New(),
		logger:          logger,
		infraInputFiles: make(map[string]struct{}),
		infraSrcPath:    types.NewSourcePath("<infra>"),
		infraEvents:     make(chan func(context.Context), 16),
		inFlightTasks:   make(map[types.EntryPointKey]*scheduler.BuildTask),
	}
}

// Start registers every configured handler as an entry point, performs the
// initial build of each, installs watchers (unless isTest), and begins the
// control loop. Per the exit semantics in the build contract: no handlers
// configured, or any initial build failing, is a fatal startup error.
func (o *Orchestrator) Start(ctx context.Context, isTest bool) error {
	if len(o.cfg.LambdaHandlers) == 0 {
		return fmt.Errorf("orchestrator: no Lambda handlers are found in the app")
	}

	for _, h := range o.cfg.LambdaHandlers {
		key := types.EntryPointKey{SrcPath: h.SrcPath, Handler: h.Handler}
		o.entryPoints.GetOrCreate(key, h.Runtime)
	}

	for _, path := range o.cfg.CDKInputFiles {
		o.infraInputFiles[path] = struct{}{}
		o.infraSrcPath.InputFiles[path] = struct{}{}
		if err := o.watcher.AddPath(path); err != nil && o.logger != nil {
			o.logger.Error(ctx, err, "orchestrator: failed to watch infra input file", "path", path)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.runCtx = runCtx
	o.running = true
	o.mu.Unlock()

	o.dispatcher.StartWorkers(runCtx, o.queue)

	if err := o.buildAllInitial(runCtx); err != nil {
		o.dispatcher.StopWorkers()
		cancel()
		return fmt.Errorf("orchestrator: failed to build the Lambda handlers: %w", err)
	}

	if !isTest {
		if err := o.watcher.Start(runCtx); err != nil {
			o.dispatcher.StopWorkers()
			cancel()
			return fmt.Errorf("orchestrator: failed to start watcher: %w", err)
		}
		o.watcher.AddHandler(o.onWatcherEvents)
	}

	o.wg.Add(1)
	go o.resultLoop(runCtx)

	return nil
}

// Stop halts the control loop and every child process/worker it owns.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.dispatcher.StopWorkers()
	_ = o.watcher.Stop()
	o.queue.Close()
	o.wg.Wait()
}

// GetState returns a snapshot of busy status.
func (o *Orchestrator) GetState() State {
	return State{
		Busy:       o.handlerReporter.IsBusy(),
		InfraBusy:  o.infraReporter.IsBusy(),
		InfraState: o.infra.State(),
	}
}

// GetBuiltHandler implements getBuiltHandler(srcPath, handler).
func (o *Orchestrator) GetBuiltHandler(ctx context.Context, srcPath, handler string) (types.Artifact, error) {
	key := types.EntryPointKey{SrcPath: srcPath, Handler: handler}
	ep, ok := o.entryPoints.Get(key)
	if !ok {
		return types.Artifact{}, fmt.Errorf("orchestrator: unknown entry point %s", key)
	}
	return ondemand.Get(ctx, ep, raiserFunc(o.raiseToHigh))
}

type raiserFunc func(ep *types.EntryPoint)

func (f raiserFunc) RaiseToHigh(ep *types.EntryPoint) { f(ep) }

func (o *Orchestrator) raiseToHigh(ep *types.EntryPoint) {
	ep.RebuildPriority = types.PriorityHigh
	o.entryPoints.NotifyUpdated(ep)
	o.enqueue(ep)
	o.pollBusy()
}

// OnInput implements onInput(): the host calls this when the user presses
// the approval key while the infra machine is AwaitingApproval. Any other
// state makes this a no-op, matching §4.4's guard.
func (o *Orchestrator) OnInput() {
	plan := o.infra.ApproveDeploy()
	if plan == nil && o.infra.State() != cdkstate.Deploying {
		return
	}
	if o.logger != nil {
		o.logger.Info(context.Background(), "orchestrator: deploy approved, invoking onReDeployApp", "stacks", len(plan))
	}
	o.runInfraAsync(func(ctx context.Context) {
		var err error
		if o.cfg.OnReDeployApp != nil {
			err = o.cfg.OnReDeployApp(ctx, plan)
		}
		o.postInfraEvent(ctx, func(ctx context.Context) { o.onInfraDeployDone(ctx, err, plan) })
	})
	o.pollBusy()
}

// NotifyFileChanged is the host-facing hook for a raw file-change
// notification that didn't arrive through the injected watcher (e.g. an
// editor plugin pushing saves directly, or the status server's POST
// endpoint). It applies the same fan-out rules as onWatcherEvents for a
// single path.
func (o *Orchestrator) NotifyFileChanged(path string) {
	o.handleChangedPath(path)
	o.reconcile()
}

func (o *Orchestrator) onWatcherEvents(events []interfaces.ChangeEvent) error {
	for _, ev := range events {
		o.handleChangedPath(ev.Path)
	}
	o.reconcile()
	return nil
}

// handleChangedPath applies the file-change fan-out rules: a Go source
// file marks every go-like entry point dirty at LOW; any other watched
// file consults the FileIndex; infra input files dirty the infra machine.
func (o *Orchestrator) handleChangedPath(path string) {
	if _, ok := o.infraInputFiles[path]; ok {
		o.infra.OnFileChange()
		return
	}

	if filepath.Ext(path) == ".go" {
		for _, ep := range o.entryPoints.GetAll() {
			if ep.Runtime == types.RuntimeGo {
				o.markDirty(ep, types.PriorityLow)
			}
		}
		return
	}

	for _, key := range o.fileIndex.Lookup(path) {
		if ep, ok := o.entryPoints.Get(key); ok {
			o.markDirty(ep, types.PriorityLow)
		}
	}
}

func (o *Orchestrator) markDirty(ep *types.EntryPoint, priority types.Priority) {
	if ep.RebuildPriority < priority {
		ep.RebuildPriority = priority
	}
	o.entryPoints.NotifyUpdated(ep)
	o.enqueue(ep)
}

func (o *Orchestrator) enqueue(ep *types.EntryPoint) {
	if ep.BuildInFlight != nil {
		if ep.RebuildPriority == types.PriorityHigh {
			o.tryEscalate(ep)
		}
		return
	}

	task := &scheduler.BuildTask{EntryPoint: ep, Priority: ep.RebuildPriority}
	ep.BuildInFlight = &types.BuildHandle{}
	o.inFlightTasks[ep.Key] = task
	if err := o.dispatchTask(ep, task); err != nil {
		ep.BuildInFlight = nil
		delete(o.inFlightTasks, ep.Key)
		if o.logger != nil {
			o.logger.Error(context.Background(), err, "orchestrator: failed to enqueue build", "entryPoint", ep.Key.String())
		}
	}
	o.pollBusy()
}

// dispatchTask routes task to the concurrency strategy its entry point's
// runtime needs: Node builds bypass the shared Go worker pool's queue
// entirely via DispatchNode so a busy pool can never delay even dequeuing
// one, matching §4.1/§5's uncapped, immediate-parallel guarantee for Node.
// Go and Python builds go through the priority/regular channels the
// bounded worker pool drains.
func (o *Orchestrator) dispatchTask(ep *types.EntryPoint, task *scheduler.BuildTask) error {
	if ep.Runtime == types.RuntimeNode {
		o.dispatcher.DispatchNode(o.currentCtx(), task)
		return nil
	}
	if task.Priority == types.PriorityHigh {
		return o.queue.EnqueuePriority(task)
	}
	return o.queue.Enqueue(task)
}

// tryEscalate moves a build task still sitting in the queue (not yet
// picked up by a worker) to the front of the line when its entry point's
// priority is raised to HIGH after it was already enqueued at LOW,
// matching §4.1's "HIGH items preempt LOW items by being placed at the
// front" rule. A task a worker has already started building is left
// alone: applyBuildResult re-enqueues it at the new priority once it
// finishes, since its DispatchedPriority will no longer match
// ep.RebuildPriority.
func (o *Orchestrator) tryEscalate(ep *types.EntryPoint) {
	task, ok := o.inFlightTasks[ep.Key]
	if !ok || task.Priority == types.PriorityHigh {
		return
	}
	if !task.MarkSupersededIfQueued() {
		return
	}

	fresh := &scheduler.BuildTask{EntryPoint: ep, Priority: types.PriorityHigh}
	o.inFlightTasks[ep.Key] = fresh
	if err := o.dispatchTask(ep, fresh); err != nil && o.logger != nil {
		o.logger.Error(context.Background(), err, "orchestrator: failed to escalate queued build", "entryPoint", ep.Key.String())
	}
}

func (o *Orchestrator) buildAllInitial(ctx context.Context) error {
	for _, ep := range o.entryPoints.GetAll() {
		o.markDirty(ep, types.PriorityHigh)
	}

	pending := o.entryPoints.Count()
	for pending > 0 {
		select {
		case raw, ok := <-o.queue.GetResults():
			if !ok {
				return fmt.Errorf("queue closed during initial build")
			}
			res := raw.(*scheduler.BuildResult)
			o.applyBuildResult(ctx, res)
			pending--
			if res.Err != nil {
				return res.Err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (o *Orchestrator) resultLoop(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-o.queue.GetResults():
			if !ok {
				return
			}
			res := raw.(*scheduler.BuildResult)
			o.applyBuildResult(ctx, res)
			o.reconcile()
		case fn, ok := <-o.infraEvents:
			if !ok {
				return
			}
			fn(ctx)
			o.reconcile()
		}
	}
}

// postInfraEvent hands a closure back to the control goroutine. Called
// from the background goroutines that run OnBuildInfra/OnReSynthApp/
// OnReDeployApp, so the actual state mutation still happens on the single
// control thread per §5. A shutdown racing with delivery drops the event
// instead of blocking forever: resultLoop has already stopped draining
// infraEvents by the time runCtx is done, and Stop()'s wg.Wait() would
// otherwise deadlock waiting on this goroutine.
func (o *Orchestrator) postInfraEvent(ctx context.Context, fn func(context.Context)) {
	select {
	case o.infraEvents <- fn:
	case <-ctx.Done():
	}
}

// runInfraAsync launches fn in its own goroutine bound to the
// orchestrator's run context, so an in-flight host callback (e.g. a
// shelled-out `cdk synth`) is cancelled on Stop() rather than outliving
// it.
func (o *Orchestrator) runInfraAsync(fn func(context.Context)) {
	ctx := o.currentCtx()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn(ctx)
	}()
}

// currentCtx returns the run context set by Start, or a background context
// before Start has run (e.g. a test constructing an Orchestrator without
// starting it). Guarded by mu since Stop's cancel races reads from other
// goroutines, mirroring the lock already taken around cancel() in Stop.
func (o *Orchestrator) currentCtx() context.Context {
	o.mu.Lock()
	ctx := o.runCtx
	o.mu.Unlock()
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// applyBuildResult implements the build outcome handling rules from §4.1.
func (o *Orchestrator) applyBuildResult(ctx context.Context, res *scheduler.BuildResult) {
	ep := res.EntryPoint
	ep.BuildInFlight = nil
	delete(o.inFlightTasks, ep.Key)

	if res.Err != nil {
		ep.HasError = true
		ondemand.RejectAll(ep, res.Err)
		o.entryPoints.NotifyUpdated(ep)
		o.pollBusy()
		return
	}

	ep.HasError = false
	// old is the pre-build snapshot the dispatcher took before invoking
	// the builder, not ep.InputFiles itself: Node-like builders reassign
	// ep.InputFiles in place to the freshly-parsed metafile set inside
	// Build(), so by the time the result reaches here ep.InputFiles
	// already *is* the new set and diffing it against itself would
	// always be a no-op.
	old := res.PreviousInputFiles
	ep.OutArtifact = res.Artifact
	// go-like and python-like runtimes don't use a per-entry-point input
	// set (go-like dirtying is the coarse glob rule, python-like has no
	// build step), so InputFiles is left as whatever it already was.
	if ep.InputFiles == nil {
		ep.InputFiles = old
	}

	for path := range old {
		if _, stillPresent := ep.InputFiles[path]; !stillPresent {
			o.fileIndex.Remove(path, ep.Key)
			_ = o.watcher.RemovePath(path)
		}
	}
	for path := range ep.InputFiles {
		if _, alreadyTracked := old[path]; !alreadyTracked {
			o.fileIndex.Add(path, ep.Key)
			_ = o.watcher.AddPath(path)
		}
	}

	// Added files may have been modified between build start and
	// completion, predating watch registration; optimistically treat the
	// entry point as dirtied again (LOW) in that case rather than losing
	// the edit. We detect this by comparing the priority the build was
	// dispatched with against the current priority: anything that raised
	// it further (a file change or an on-demand HIGH escalation) while
	// the build was in flight means new work arrived.
	if ep.RebuildPriority == res.DispatchedPriority {
		ep.RebuildPriority = types.PriorityOff
		ondemand.WakeAll(ep, ep.OutArtifact, ep.Runtime)
	} else {
		o.enqueue(ep)
	}

	sp := o.sourcePaths.GetOrCreate(ep.Key.SrcPath)
	sp.NeedsRecheck = true
	for path := range ep.InputFiles {
		sp.InputFiles[path] = struct{}{}
	}

	o.entryPoints.NotifyUpdated(ep)
	o.pollBusy()
}

// reconcile runs the lint/type-check gate and drives the infra machine's
// next step when appropriate, then polls both busy reporters.
func (o *Orchestrator) reconcile() {
	anyError := false
	for _, ep := range o.entryPoints.GetAll() {
		if ep.HasError {
			anyError = true
			break
		}
	}

	if !anyError {
		for _, sp := range o.sourcePaths.GetAll() {
			if sp.NeedsRecheck && o.sourcePathClean(sp) {
				o.checkerCo.Recheck(context.Background(), sp)
			}
		}
	}

	o.driveInfra(context.Background())
	o.pollBusy()
}

// driveInfra advances the infra state machine past any state whose next
// step is the orchestrator's responsibility to kick off (BeginBuild,
// lint/type-check + BeginSynth). It is idempotent: calling it with no
// infra operation in flight and the machine already waiting on an async
// step (Building, Synthesizing, Deploying, AwaitingApproval) is a no-op.
func (o *Orchestrator) driveInfra(ctx context.Context) {
	if o.infraOpInFlight {
		return
	}

	switch o.infra.State() {
	case cdkstate.BuildPending:
		o.infra.BeginBuild()
		o.infraOpInFlight = true
		o.runInfraAsync(func(ctx context.Context) {
			var (
				inputFiles []string
				err        error
			)
			if o.cfg.OnBuildInfra != nil {
				inputFiles, err = o.cfg.OnBuildInfra(ctx)
			}
			o.postInfraEvent(ctx, func(ctx context.Context) { o.onInfraBuildDone(ctx, inputFiles, err) })
		})

	case cdkstate.LintingTypeCheckingSynthPending:
		o.checkerCo.Recheck(ctx, o.infraSrcPath)
		o.infra.BeginSynth()
		o.infraOpInFlight = true
		o.runInfraAsync(func(ctx context.Context) {
			if o.cfg.OnReSynthApp == nil {
				o.postInfraEvent(ctx, func(ctx context.Context) {
					o.onInfraSynthDone(ctx, cdkstate.SynthSucceeded, &cdkstate.Manifest{})
				})
				return
			}
			manifest, err := o.cfg.OnReSynthApp(ctx)
			outcome := cdkstate.SynthSucceeded
			switch {
			case err == nil:
			case isCancelledSynth(err):
				outcome = cdkstate.SynthCancelledOutcome
			default:
				outcome = cdkstate.SynthFailedOutcome
			}
			o.postInfraEvent(ctx, func(ctx context.Context) { o.onInfraSynthDone(ctx, outcome, manifest) })
		})
	}
}

// cancelledSynthError is implemented by a synth error carrying the
// `cancelled: true` marker described in the build contract's
// onReSynthApp() host callback; see errors.NewSynthCancelledError for the
// concrete value onReSynthApp implementations are expected to return.
type cancelledSynthError interface {
	Cancelled() bool
}

func isCancelledSynth(err error) bool {
	c, ok := err.(cancelledSynthError)
	return ok && c.Cancelled()
}

func (o *Orchestrator) onInfraBuildDone(ctx context.Context, inputFiles []string, err error) {
	o.infraOpInFlight = false
	o.infra.OnBuildComplete(err == nil)
	if err != nil {
		o.log(ctx, "Rebuilding infra failed")
		if o.logger != nil {
			o.logger.Error(ctx, err, "orchestrator: infra build failed")
		}
	} else if o.cfg.OnBuildInfra != nil {
		o.reconcileInfraWatch(inputFiles)
	}
	o.driveInfra(ctx)
	o.pollBusy()
}

func (o *Orchestrator) onInfraSynthDone(ctx context.Context, outcome cdkstate.SynthOutcome, manifest *cdkstate.Manifest) {
	o.infraOpInFlight = false
	o.infra.OnSynthComplete(outcome, manifest)
	if outcome == cdkstate.SynthFailedOutcome {
		o.log(ctx, "Rebuilding infra failed")
	}
	o.driveInfra(ctx)
	o.pollBusy()
}

func (o *Orchestrator) onInfraDeployDone(ctx context.Context, err error, deployedChecksums map[string]string) {
	o.infra.OnDeployComplete(err == nil, deployedChecksums)
	if err != nil && o.logger != nil {
		o.logger.Error(ctx, err, "orchestrator: infra deploy failed")
	}
	o.driveInfra(ctx)
	o.pollBusy()
}

// reconcileInfraWatch diffs the infra machine's newly reported input-file
// set against what's currently watched, adding/removing the difference
// (the Watch-Set Manager's job, applied here to the infra input set the
// same way it's applied to each entry point's in applyBuildResult).
func (o *Orchestrator) reconcileInfraWatch(newFiles []string) {
	next := make(map[string]struct{}, len(newFiles))
	for _, f := range newFiles {
		next[f] = struct{}{}
	}
	for f := range o.infraInputFiles {
		if _, ok := next[f]; !ok {
			_ = o.watcher.RemovePath(f)
		}
	}
	for f := range next {
		if _, ok := o.infraInputFiles[f]; !ok {
			_ = o.watcher.AddPath(f)
		}
	}
	o.infraInputFiles = next
	o.infraSrcPath.InputFiles = next
}

func (o *Orchestrator) sourcePathClean(sp *types.SourcePath) bool {
	for _, ep := range o.entryPoints.GetAll() {
		if ep.Key.SrcPath != sp.SrcPath {
			continue
		}
		if ep.HasError || ep.BuildInFlight != nil || ep.RebuildPriority != types.PriorityOff {
			return false
		}
	}
	return true
}

func (o *Orchestrator) pollBusy() {
	handlerBusy := false
	for _, ep := range o.entryPoints.GetAll() {
		if ep.IsDirty() {
			handlerBusy = true
			break
		}
	}
	if !handlerBusy {
		for _, sp := range o.sourcePaths.GetAll() {
			if sp.NeedsRecheck || sp.LintProc != nil || sp.TypeCheckProc != nil {
				handlerBusy = true
				break
			}
		}
	}
	anyHandlerError := false
	for _, ep := range o.entryPoints.GetAll() {
		if ep.HasError {
			anyHandlerError = true
			break
		}
	}

	switch o.handlerReporter.Poll(handlerBusy) {
	case status.EdgeBecameBusy:
		o.log(context.Background(), "Rebuilding code…")
	case status.EdgeBecameIdle:
		if anyHandlerError {
			o.log(context.Background(), "Rebuilding code failed")
		} else {
			o.log(context.Background(), "Done building code")
		}
	}

	switch o.infraReporter.Poll(o.infra.IsBusy()) {
	case status.EdgeBecameBusy:
		o.log(context.Background(), "Rebuilding infra…")
	case status.EdgeBecameIdle:
		o.log(context.Background(), "Done building infra")
	}
}

// log emits a single user-facing progress message through the logger, or
// is a no-op if none was supplied.
func (o *Orchestrator) log(ctx context.Context, msg string) {
	if o.logger != nil {
		o.logger.Info(ctx, msg)
	}
}
