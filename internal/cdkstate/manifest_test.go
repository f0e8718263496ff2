package cdkstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSnapshot_MissingFileReturnsEmptyMap(t *testing.T) {
	got, err := ReadSnapshot(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteSnapshotThenReadSnapshot_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "infra-manifest.yml")
	want := map[string]string{"stack-a": "abc123", "stack-b": "def456"}

	require.NoError(t, WriteSnapshot(path, want))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadSnapshot_MalformedYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	_, err := ReadSnapshot(path)
	assert.Error(t, err)
}
