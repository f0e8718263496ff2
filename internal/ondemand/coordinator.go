// Package ondemand implements the On-Demand Request Coordinator:
// getBuiltHandler(srcPath, handler) returns immediately for a clean entry
// point, or registers a FIFO waiter and suspends until the scheduler's
// next build resolves or rejects it.
package ondemand

import (
	"context"
	"fmt"

	"github.com/conneroisu/rebuildctl/internal/types"
)

// PriorityRaiser escalates an entry point's rebuild priority and triggers
// a reconciliation pass, implemented by the orchestrator's scheduler
// glue. Kept as a narrow interface so this package doesn't depend on
// internal/scheduler directly.
type PriorityRaiser interface {
	RaiseToHigh(ep *types.EntryPoint)
}

// Get implements getBuiltHandler. If ep is already clean it returns the
// current artifact immediately; otherwise it escalates priority, enqueues
// a waiter, and blocks until woken by a build outcome or ctx is cancelled.
func Get(ctx context.Context, ep *types.EntryPoint, raiser PriorityRaiser) (types.Artifact, error) {
	if !ep.IsDirty() {
		return ep.OutArtifact, nil
	}

	waiter := make(types.Waiter, 1)
	ep.PendingRequests = append(ep.PendingRequests, waiter)
	raiser.RaiseToHigh(ep)

	select {
	case result := <-waiter:
		if result.Err != nil {
			return types.Artifact{}, result.Err
		}
		return result.Artifact, nil
	case <-ctx.Done():
		return types.Artifact{}, ctx.Err()
	}
}

// WakeAll resolves every pending waiter on ep in FIFO registration order
// with a successful result, then clears the queue. Called by the
// scheduler after a build succeeds and rebuildPriority settled back to
// OFF.
func WakeAll(ep *types.EntryPoint, artifact types.Artifact, runtime types.Runtime) {
	for _, w := range ep.PendingRequests {
		w <- types.WaitResult{Artifact: artifact, Runtime: runtime}
		close(w)
	}
	ep.PendingRequests = nil
}

// RejectAll rejects every pending waiter on ep together, in registration
// order, with a descriptive build-failure error. Called by the scheduler
// after a build fails.
func RejectAll(ep *types.EntryPoint, cause error) {
	err := fmt.Errorf("build failed for %s: %w", ep.Key, cause)
	for _, w := range ep.PendingRequests {
		w <- types.WaitResult{Err: err}
		close(w)
	}
	ep.PendingRequests = nil
}
