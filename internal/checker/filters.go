package checker

import (
	"path/filepath"
	"sort"
	"strings"
)

// thirdPartyModulesDir is the directory name the bundler/bundled-input
// filter excludes, matching the ignore-pattern convention used elsewhere
// (internal/config's default build.ignore, internal/infra's source walk).
const thirdPartyModulesDir = "node_modules"

// lintFiles returns the .ts/.js files in inputFiles that aren't under a
// third-party-modules directory, per §4.3 step 2's filter. Sorted so
// launched commands are deterministic (and therefore testable).
func lintFiles(inputFiles map[string]struct{}) []string {
	return filterFiles(inputFiles, func(f string) bool {
		ext := filepath.Ext(f)
		return (ext == ".ts" || ext == ".js") && !underThirdPartyModules(f)
	})
}

// typeCheckFiles returns the .ts files in inputFiles, per §4.3 step 3.
func typeCheckFiles(inputFiles map[string]struct{}) []string {
	return filterFiles(inputFiles, func(f string) bool {
		return filepath.Ext(f) == ".ts"
	})
}

func filterFiles(inputFiles map[string]struct{}, keep func(string) bool) []string {
	var out []string
	for f := range inputFiles {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func underThirdPartyModules(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == thirdPartyModulesDir {
			return true
		}
	}
	return false
}
