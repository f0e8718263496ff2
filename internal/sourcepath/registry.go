// Package sourcepath provides the SourcePath registry: one entry per
// distinct handler source path (an entry point's SrcPath) that takes part
// in linting and type checking, independent of how many entry points (handler symbols) it
// contains. Like internal/entrypoint, it is owned exclusively by the
// orchestrator's control-loop goroutine and does no locking of its own.
package sourcepath

import (
	"github.com/conneroisu/rebuildctl/internal/types"
)

// Registry holds every known SourcePath, keyed by its SrcPath.
type Registry struct {
	entries map[string]*types.SourcePath
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*types.SourcePath)}
}

// GetOrCreate returns the SourcePath for srcPath, creating it if this is
// the first time srcPath has been seen.
func (r *Registry) GetOrCreate(srcPath string) *types.SourcePath {
	if sp, ok := r.entries[srcPath]; ok {
		return sp
	}
	sp := types.NewSourcePath(srcPath)
	r.entries[srcPath] = sp
	return sp
}

// Get retrieves a SourcePath by path.
func (r *Registry) Get(srcPath string) (*types.SourcePath, bool) {
	sp, ok := r.entries[srcPath]
	return sp, ok
}

// GetAll returns every known SourcePath. Order is unspecified.
func (r *Registry) GetAll() []*types.SourcePath {
	all := make([]*types.SourcePath, 0, len(r.entries))
	for _, sp := range r.entries {
		all = append(all, sp)
	}
	return all
}

// Remove deletes a SourcePath no longer referenced by any entry point,
// killing any in-flight lint/type-check process first so nothing leaks.
func (r *Registry) Remove(srcPath string) {
	sp, ok := r.entries[srcPath]
	if !ok {
		return
	}
	if sp.LintProc != nil {
		_ = sp.LintProc.Kill()
	}
	if sp.TypeCheckProc != nil {
		_ = sp.TypeCheckProc.Kill()
	}
	delete(r.entries, srcPath)
}

// Count returns the number of registered source paths.
func (r *Registry) Count() int {
	return len(r.entries)
}

// AllClean reports whether every registered source path needs no recheck.
func (r *Registry) AllClean() bool {
	for _, sp := range r.entries {
		if sp.NeedsRecheck {
			return false
		}
	}
	return true
}
