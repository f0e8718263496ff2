// Package watchset implements the Watch-Set Manager: given a new set of
// input files an entry point (or the infra machine) now depends on, it
// diffs against what is currently watched and issues only the add/remove
// calls needed to bring the watcher in sync, rather than re-adding
// everything on every rebuild.
package watchset

import (
	"github.com/conneroisu/rebuildctl/internal/interfaces"
)

// Manager tracks the set of paths currently under watch and reconciles it
// against new desired sets reported after each successful build.
type Manager struct {
	watcher interfaces.FileWatcher
	current map[string]struct{}
}

// New creates a watch-set manager wrapping watcher. watcher is expected to
// already be started; Manager only calls AddPath/RemovePath on it.
func New(watcher interfaces.FileWatcher) *Manager {
	return &Manager{watcher: watcher, current: make(map[string]struct{})}
}

// Reconcile brings the watch set to exactly desired, adding new paths and
// removing ones no longer present. Errors for individual add/remove calls
// are collected and returned together rather than aborting partway
// through, so one bad path doesn't leave the rest of the diff unapplied.
func (m *Manager) Reconcile(desired map[string]struct{}) []error {
	var errs []error

	for path := range desired {
		if _, ok := m.current[path]; ok {
			continue
		}
		if err := m.watcher.AddPath(path); err != nil {
			errs = append(errs, err)
			continue
		}
		m.current[path] = struct{}{}
	}

	for path := range m.current {
		if _, ok := desired[path]; ok {
			continue
		}
		if err := m.watcher.RemovePath(path); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(m.current, path)
	}

	return errs
}

// Paths returns the set of paths currently believed to be watched.
func (m *Manager) Paths() []string {
	paths := make([]string, 0, len(m.current))
	for path := range m.current {
		paths = append(paths, path)
	}
	return paths
}

// Count returns how many paths are currently watched.
func (m *Manager) Count() int {
	return len(m.current)
}
