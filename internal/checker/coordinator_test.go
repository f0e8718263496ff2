package checker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/rebuildctl/internal/types"
)

type fakeProcess struct {
	killed bool
	done   chan struct{}
}

func newFakeProcess() *fakeProcess           { return &fakeProcess{done: make(chan struct{})} }
func (p *fakeProcess) Kill() error           { p.killed = true; return nil }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }

type fakeLauncher struct {
	launched  int
	lastFiles []string
	proc      *fakeProcess
	err       error
}

func (l *fakeLauncher) Launch(ctx context.Context, sp *types.SourcePath, files []string) (types.ManagedProcess, error) {
	l.launched++
	l.lastFiles = files
	if l.err != nil {
		return nil, l.err
	}
	l.proc = newFakeProcess()
	return l.proc, nil
}

// nodeSourcePath builds a SourcePath that passes both the lint gate
// (non-third-party .ts present) and the type-check gate (tsconfig plus a
// non-empty .ts set).
func nodeSourcePath() *types.SourcePath {
	sp := types.NewSourcePath("handlers/api")
	sp.TSConfig = "handlers/tsconfig.json"
	sp.InputFiles["handlers/api/index.ts"] = struct{}{}
	return sp
}

func TestCoordinator_RecheckLaunchesBothCheckers(t *testing.T) {
	lint := &fakeLauncher{}
	typeCheck := &fakeLauncher{}
	c := New(lint, typeCheck, true, true, nil)

	sp := nodeSourcePath()
	sp.NeedsRecheck = true
	c.Recheck(context.Background(), sp)

	assert.Equal(t, 1, lint.launched)
	assert.Equal(t, 1, typeCheck.launched)
	assert.False(t, sp.NeedsRecheck)
	assert.NotNil(t, sp.LintProc)
	assert.NotNil(t, sp.TypeCheckProc)
}

func TestCoordinator_RecheckSkipsDisabledCheckers(t *testing.T) {
	lint := &fakeLauncher{}
	typeCheck := &fakeLauncher{}
	c := New(lint, typeCheck, true, false, nil)

	sp := nodeSourcePath()
	c.Recheck(context.Background(), sp)

	assert.Equal(t, 1, lint.launched)
	assert.Equal(t, 0, typeCheck.launched)
}

func TestCoordinator_RecheckKillsStaleProcessBeforeRestart(t *testing.T) {
	lint := &fakeLauncher{}
	c := New(lint, nil, true, false, nil)

	sp := nodeSourcePath()
	c.Recheck(context.Background(), sp)
	first := lint.proc
	require.NotNil(t, first)

	c.Recheck(context.Background(), sp)

	assert.True(t, first.killed)
	assert.Equal(t, 2, lint.launched)
}

func TestCoordinator_RecheckHandlesLaunchError(t *testing.T) {
	lint := &fakeLauncher{err: errors.New("spawn failed")}
	c := New(lint, nil, true, false, nil)

	sp := nodeSourcePath()
	assert.NotPanics(t, func() { c.Recheck(context.Background(), sp) })
	assert.Nil(t, sp.LintProc)
}

func TestCoordinator_KillAllClearsBothSlots(t *testing.T) {
	c := New(nil, nil, false, false, nil)
	sp := types.NewSourcePath("handlers/api.ts")
	lintProc := newFakeProcess()
	typeProc := newFakeProcess()
	sp.LintProc = lintProc
	sp.TypeCheckProc = typeProc

	c.KillAll(sp)

	assert.True(t, lintProc.killed)
	assert.True(t, typeProc.killed)
	assert.Nil(t, sp.LintProc)
	assert.Nil(t, sp.TypeCheckProc)
}

// The following cover §4.3's three gating conditions, which a prior
// revision of Recheck did not implement at all.

func TestCoordinator_RecheckSkipsLintWhenFilteredSetEmpty(t *testing.T) {
	lint := &fakeLauncher{}
	c := New(lint, nil, true, false, nil)

	sp := types.NewSourcePath("handlers/worker")
	sp.InputFiles["handlers/worker/main.go"] = struct{}{}
	c.Recheck(context.Background(), sp)

	assert.Equal(t, 0, lint.launched, "a go-only input set has no .ts/.js files to lint")
	assert.Nil(t, sp.LintProc)
}

func TestCoordinator_RecheckExcludesThirdPartyModulesFromLint(t *testing.T) {
	lint := &fakeLauncher{}
	c := New(lint, nil, true, false, nil)

	sp := types.NewSourcePath("handlers/api")
	sp.InputFiles["handlers/api/node_modules/dep/index.js"] = struct{}{}
	c.Recheck(context.Background(), sp)

	assert.Equal(t, 0, lint.launched)

	sp.InputFiles["handlers/api/index.ts"] = struct{}{}
	c.Recheck(context.Background(), sp)

	require.Equal(t, 1, lint.launched)
	assert.Equal(t, []string{"handlers/api/index.ts"}, lint.lastFiles)
}

func TestCoordinator_RecheckSkipsTypeCheckWithoutTSConfig(t *testing.T) {
	typeCheck := &fakeLauncher{}
	c := New(nil, typeCheck, false, true, nil)

	sp := types.NewSourcePath("handlers/api")
	sp.InputFiles["handlers/api/index.ts"] = struct{}{}
	c.Recheck(context.Background(), sp)

	assert.Equal(t, 0, typeCheck.launched, "no tsconfig gates out type-check even with .ts files present")
}

func TestCoordinator_RecheckSkipsTypeCheckWhenTSSetEmpty(t *testing.T) {
	typeCheck := &fakeLauncher{}
	c := New(nil, typeCheck, false, true, nil)

	sp := types.NewSourcePath("handlers/api")
	sp.TSConfig = "handlers/tsconfig.json"
	sp.InputFiles["handlers/api/README.md"] = struct{}{}
	c.Recheck(context.Background(), sp)

	assert.Equal(t, 0, typeCheck.launched)
}

func TestCoordinator_RecheckKillsLiveProcessWhenGateStopsPassing(t *testing.T) {
	lint := &fakeLauncher{}
	c := New(lint, nil, true, false, nil)

	sp := nodeSourcePath()
	c.Recheck(context.Background(), sp)
	proc := lint.proc
	require.NotNil(t, proc)

	delete(sp.InputFiles, "handlers/api/index.ts")
	c.Recheck(context.Background(), sp)

	assert.True(t, proc.killed)
	assert.Nil(t, sp.LintProc)
	assert.Equal(t, 1, lint.launched, "the gate failing means no relaunch, only a kill")
}
