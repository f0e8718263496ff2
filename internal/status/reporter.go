// Package status implements the Busy-Status Reporter: a single boolean,
// isProcessingLambdaChanges, recomputed by polling the isBusy invariant
// after every state mutation, emitting output only on edge transitions
// rather than on every poll.
package status

// Reporter tracks a boolean busy signal and reports only edges
// (false->true, true->false), matching §3(6)/§4.6's edge-detection
// contract: printing on every poll would spam output once per
// reconciliation pass.
type Reporter struct {
	busy bool
}

// New creates a reporter starting in the idle (not busy) state.
func New() *Reporter {
	return &Reporter{}
}

// Poll evaluates the current busy value and returns the edge transition
// that occurred, if any. Callers call this after every state mutation
// with a freshly computed isBusy value.
func (r *Reporter) Poll(isBusy bool) Edge {
	if isBusy == r.busy {
		return EdgeNone
	}
	r.busy = isBusy
	if isBusy {
		return EdgeBecameBusy
	}
	return EdgeBecameIdle
}

// IsBusy returns the last polled busy value.
func (r *Reporter) IsBusy() bool {
	return r.busy
}

// Edge enumerates the possible outcomes of a Poll call.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeBecameBusy
	EdgeBecameIdle
)

// HandlersBusy reports §3(6)'s isBusy computation restricted to the
// handler subsystem: any entry point building/dirty, or any source path
// needing recheck or running a live checker process.
func HandlersBusy(anyEntryPointDirty, anySourcePathDirty bool) bool {
	return anyEntryPointDirty || anySourcePathDirty
}
