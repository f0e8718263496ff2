package sourcepath

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	killed bool
	done   chan struct{}
}

func newFakeProcess() *fakeProcess { return &fakeProcess{done: make(chan struct{})} }

func (p *fakeProcess) Kill() error {
	p.killed = true
	return nil
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func TestRegistry_GetOrCreateIsIdempotent(t *testing.T) {
	r := New()
	a := r.GetOrCreate("handlers/api.ts")
	b := r.GetOrCreate("handlers/api.ts")
	assert.Same(t, a, b)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_GetMissingReturnsFalse(t *testing.T) {
	r := New()
	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestRegistry_RemoveKillsInFlightProcesses(t *testing.T) {
	r := New()
	sp := r.GetOrCreate("handlers/api.ts")
	lint := newFakeProcess()
	typeCheck := newFakeProcess()
	sp.LintProc = lint
	sp.TypeCheckProc = typeCheck

	r.Remove("handlers/api.ts")

	assert.True(t, lint.killed)
	assert.True(t, typeCheck.killed)
	_, ok := r.Get("handlers/api.ts")
	assert.False(t, ok)
}

func TestRegistry_RemoveMissingIsNoOp(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.Remove("nope") })
}

func TestRegistry_AllCleanReflectsNeedsRecheck(t *testing.T) {
	r := New()
	a := r.GetOrCreate("a.ts")
	r.GetOrCreate("b.ts")
	require.True(t, r.AllClean())

	a.NeedsRecheck = true
	assert.False(t, r.AllClean())
}

func TestFakeProcess_ImplementsManagedProcess(t *testing.T) {
	p := newFakeProcess()
	assert.NoError(t, p.Kill())
	select {
	case <-p.Done():
		t.Fatal("done channel should not be closed yet")
	default:
	}
	_ = errors.New("sanity")
}
