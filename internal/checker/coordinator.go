package checker

import (
	"context"

	"github.com/conneroisu/rebuildctl/internal/interfaces"
	"github.com/conneroisu/rebuildctl/internal/logging"
	"github.com/conneroisu/rebuildctl/internal/types"
)

// Coordinator restarts the lint/type-check process for a source path
// whenever its input file set changes, killing any stale in-flight
// process first. A new input set arriving while a process is already
// running is handled by StaleCheckerTermination: the kill is not an
// error, just an expected signal to restart.
type Coordinator struct {
	lint       interfaces.ManagedProcessLauncher
	typeCheck  interfaces.ManagedProcessLauncher
	lintOn     bool
	typeCheckOn bool
	logger     *logging.RebuildLogger
}

// New creates a checker coordinator. Either launcher may be nil if the
// corresponding checker is disabled by config.
func New(lint, typeCheck interfaces.ManagedProcessLauncher, lintOn, typeCheckOn bool, logger *logging.RebuildLogger) *Coordinator {
	return &Coordinator{lint: lint, typeCheck: typeCheck, lintOn: lintOn, typeCheckOn: typeCheckOn, logger: logger}
}

// Recheck kills any running checker processes for sourcePath, then per
// §4.3: starts a new lint process over the .ts/.js input files (excluding
// third-party-modules directories) if lint is enabled and that filtered
// set is non-empty, and a new type-check process if type-check is
// enabled, sourcePath has a tsconfig, and the .ts set is non-empty.
// Either gate failing just leaves the corresponding slot killed and nil,
// e.g. a go-like source path's all-.go input set gates out both checkers
// regardless of whether lint/type-check are globally enabled.
func (c *Coordinator) Recheck(ctx context.Context, sourcePath *types.SourcePath) {
	if c.lintOn && c.lint != nil {
		if files := lintFiles(sourcePath.InputFiles); len(files) > 0 {
			c.restart(ctx, sourcePath, &sourcePath.LintProc, c.lint, files)
		} else {
			c.kill(&sourcePath.LintProc)
		}
	} else {
		c.kill(&sourcePath.LintProc)
	}

	if c.typeCheckOn && c.typeCheck != nil {
		if files := typeCheckFiles(sourcePath.InputFiles); sourcePath.TSConfig != "" && len(files) > 0 {
			c.restart(ctx, sourcePath, &sourcePath.TypeCheckProc, c.typeCheck, files)
		} else {
			c.kill(&sourcePath.TypeCheckProc)
		}
	} else {
		c.kill(&sourcePath.TypeCheckProc)
	}

	sourcePath.NeedsRecheck = false
}

func (c *Coordinator) restart(ctx context.Context, sourcePath *types.SourcePath, slot *types.ManagedProcess, launcher interfaces.ManagedProcessLauncher, files []string) {
	c.kill(slot)
	proc, err := launcher.Launch(ctx, sourcePath, files)
	if err != nil {
		if c.logger != nil {
			c.logger.Error(ctx, err, "checker: failed to launch process", "srcPath", sourcePath.SrcPath)
		}
		*slot = nil
		return
	}
	*slot = proc
}

func (c *Coordinator) kill(slot *types.ManagedProcess) {
	if *slot != nil {
		_ = (*slot).Kill()
		*slot = nil
	}
}

// KillAll terminates every in-flight process for sourcePath, used when the
// source path itself is being removed from the registry.
func (c *Coordinator) KillAll(sourcePath *types.SourcePath) {
	c.kill(&sourcePath.LintProc)
	c.kill(&sourcePath.TypeCheckProc)
}
