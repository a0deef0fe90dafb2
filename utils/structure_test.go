//go:build !windows

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStructure(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	root := NewDirStructure(filepath.Join(base, "root"), 0o755)
	records := root.ChildDir("entropy", 0o700).ChildDir("records", 0o750)
	require.NoError(t, records.Ensure())

	for path, perm := range map[string]os.FileMode{
		"root":                 0o755,
		"root/entropy":         0o700,
		"root/entropy/records": 0o750,
	} {
		info, err := os.Stat(filepath.Join(base, path))
		require.NoError(t, err, path)
		assert.True(t, info.IsDir(), path)
		assert.Equal(t, perm, info.Mode().Perm(), path)
	}

	// Same child, updated permissions.
	again := root.ChildDir("entropy", 0o750)
	assert.Same(t, records.Parent, again)
	require.NoError(t, again.Ensure())
	info, err := os.Stat(again.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestEnsureDirectoryReplacesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("not a dir"), 0o600))

	require.NoError(t, EnsureDirectory(path, 0o700))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
