package fstree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/safing/entropool/database/storage"
	"github.com/safing/entropool/database/storage/storagetest"
)

func TestFSTree(t *testing.T) {
	t.Parallel()

	storagetest.RunConformance(t, func(t *testing.T) storage.Interface {
		t.Helper()

		db, err := NewFSTree("test", t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = db.Shutdown()
		})
		return db
	})
}

func TestKeyValidation(t *testing.T) {
	t.Parallel()

	db, err := NewFSTree("test", t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../escape", "a/b", `a\b`, ".."} {
		err := db.Put(key, []byte("x"))
		require.ErrorIs(t, err, storage.ErrInvalidKey, key)
	}

	fst := db.(*FSTree) //nolint:forcetypeassert
	path, err := fst.buildFilePath("abcdef")
	require.NoError(t, err)
	require.Contains(t, path, "ab")
}
