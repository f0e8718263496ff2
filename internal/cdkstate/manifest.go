package cdkstate

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// snapshot is the on-disk form of a Machine's last-deployed checksum set,
// written after every successful deploy so a restarted orchestrator can
// seed cdkstate.New with the same baseline instead of treating every
// stack as changed on the next run.
type snapshot struct {
	DeployedChecksums map[string]string `yaml:"deployed_checksums"`
}

// WriteSnapshot persists deployedChecksums to path, creating parent
// directories as needed. cmd/wire.go calls it from the deploy callback
// once the deploy succeeds, before the orchestrator applies
// OnDeployComplete.
func WriteSnapshot(path string, deployedChecksums map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cdkstate: create snapshot dir: %w", err)
	}
	data, err := yaml.Marshal(&snapshot{DeployedChecksums: deployedChecksums})
	if err != nil {
		return fmt.Errorf("cdkstate: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cdkstate: write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a previously written checksum snapshot. A missing
// file is not an error: it returns an empty map, since a fresh checkout
// has no deploy history and every stack is treated as changed.
func ReadSnapshot(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cdkstate: read snapshot: %w", err)
	}
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("cdkstate: parse snapshot: %w", err)
	}
	if snap.DeployedChecksums == nil {
		snap.DeployedChecksums = map[string]string{}
	}
	return snap.DeployedChecksums, nil
}
