// Package fileindex maintains the inverted index from watched file path to
// the set of entry points that depend on it, used by the control loop to
// look up which entry points go dirty when a watcher event arrives.
package fileindex

import (
	"github.com/conneroisu/rebuildctl/internal/types"
)

// Index maps an absolute file path to the entry point keys that declared
// it as an input file (via a build's reported inputFiles, or the Go
// compiler's package file set). Owned exclusively by the orchestrator's
// control-loop goroutine.
type Index struct {
	byFile map[string][]types.EntryPointKey
}

// New creates an empty file index.
func New() *Index {
	return &Index{byFile: make(map[string][]types.EntryPointKey)}
}

// Add records that key depends on path. Adding the same (path, key) pair
// twice is a no-op.
func (idx *Index) Add(path string, key types.EntryPointKey) {
	existing := idx.byFile[path]
	for _, k := range existing {
		if k == key {
			return
		}
	}
	idx.byFile[path] = append(existing, key)
}

// Remove drops key from path's dependent set. When the set becomes empty
// the map entry itself is deleted rather than left as an empty slice,
// so watched paths with no remaining dependents don't linger in the index
// and get correctly reported as unowned by Lookup/Paths.
func (idx *Index) Remove(path string, key types.EntryPointKey) {
	existing, ok := idx.byFile[path]
	if !ok {
		return
	}
	filtered := existing[:0]
	for _, k := range existing {
		if k != key {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) == 0 {
		delete(idx.byFile, path)
		return
	}
	idx.byFile[path] = filtered
}

// RemoveAll drops every (path, key) pair for the given entry point key,
// used when an entry point's whole input set is replaced after a rebuild.
func (idx *Index) RemoveAll(key types.EntryPointKey) {
	for path := range idx.byFile {
		idx.Remove(path, key)
	}
}

// Lookup returns the entry point keys that depend on path.
func (idx *Index) Lookup(path string) []types.EntryPointKey {
	return idx.byFile[path]
}

// Paths returns every path currently tracked by the index, i.e. the set
// that should be under active watch.
func (idx *Index) Paths() []string {
	paths := make([]string, 0, len(idx.byFile))
	for path := range idx.byFile {
		paths = append(paths, path)
	}
	return paths
}

// ReplaceInputFiles removes every existing (path, key) pair for key and
// re-adds key for each path in inputFiles, matching the post-build
// reconciliation step where an entry point's inputFiles set is replaced
// wholesale.
func (idx *Index) ReplaceInputFiles(key types.EntryPointKey, inputFiles map[string]struct{}) {
	idx.RemoveAll(key)
	for path := range inputFiles {
		idx.Add(path, key)
	}
}
