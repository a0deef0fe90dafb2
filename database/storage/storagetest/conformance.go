// Package storagetest provides a conformance suite for storage backends.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/entropool/database/storage"
)

// NewStorage constructs a fresh, empty storage for a test.
// The returned storage must be isolated from other tests.
type NewStorage func(t *testing.T) storage.Interface

// RunConformance runs the storage conformance suite against a backend.
func RunConformance(t *testing.T, newStorage NewStorage) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		db := newStorage(t)
		want := []byte("hello, entropy storage")

		require.NoError(t, db.Put("abcdef", want))

		got, err := db.Get("abcdef")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		// returned data must not alias stored data
		got[0] = 'X'
		again, err := db.Get("abcdef")
		require.NoError(t, err)
		assert.Equal(t, want, again)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		db := newStorage(t)

		require.NoError(t, db.Put("key1", []byte("first")))
		require.NoError(t, db.Put("key1", []byte("second")))

		got, err := db.Get("key1")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		db := newStorage(t)

		exists, err := db.Has("missing")
		require.NoError(t, err)
		assert.False(t, exists, "Has returned true for missing key")

		_, err = db.Get("missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, db.Put("missing", []byte("now here")))
		exists, err = db.Has("missing")
		require.NoError(t, err)
		assert.True(t, exists, "Has returned false after Put")
	})

	t.Run("RejectEmptyKey", func(t *testing.T) {
		db := newStorage(t)

		err := db.Put("", []byte("data"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	t.Run("Delete", func(t *testing.T) {
		db := newStorage(t)

		require.NoError(t, db.Put("gone", []byte("soon")))
		require.NoError(t, db.Delete("gone"))

		_, err := db.Get("gone")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// deleting a missing entry is not an error
		assert.NoError(t, db.Delete("gone"))
	})

	t.Run("QueryPrefix", func(t *testing.T) {
		db := newStorage(t)

		for i := 0; i < 20; i++ {
			require.NoError(t, db.Put(fmt.Sprintf("aa%02d", i), []byte{byte(i)}))
			require.NoError(t, db.Put(fmt.Sprintf("bb%02d", i), []byte{byte(i)}))
		}

		it, err := db.Query("aa")
		require.NoError(t, err)

		var keys []string
		for e := range it.Next {
			keys = append(keys, e.Key)
			assert.Len(t, e.Value, 1)
		}
		require.NoError(t, it.Err())
		sort.Strings(keys)

		require.Len(t, keys, 20)
		assert.Equal(t, "aa00", keys[0])
		assert.Equal(t, "aa19", keys[19])

		it, err = db.Query("")
		require.NoError(t, err)
		cnt := 0
		for range it.Next {
			cnt++
		}
		require.NoError(t, it.Err())
		assert.Equal(t, 40, cnt)
	})

	t.Run("QueryCancel", func(t *testing.T) {
		db := newStorage(t)

		for i := 0; i < 50; i++ {
			require.NoError(t, db.Put(fmt.Sprintf("cc%02d", i), []byte("x")))
		}

		it, err := db.Query("cc")
		require.NoError(t, err)

		<-it.Next
		it.Cancel()
		for range it.Next {
			// drain until the executor finished
		}
		assert.NoError(t, it.Err())
	})

	t.Run("PutMany", func(t *testing.T) {
		db := newStorage(t)

		batcher, ok := db.(storage.Batcher)
		if !ok {
			t.Skip("backend does not support batch operations")
		}

		batch, errs := batcher.PutMany()
		for i := 0; i < 100; i++ {
			batch <- &storage.Entry{
				Key:   fmt.Sprintf("dd%03d", i),
				Value: []byte{byte(i)},
			}
		}
		close(batch)
		require.NoError(t, <-errs)

		got, err := db.Get("dd042")
		require.NoError(t, err)
		assert.Equal(t, []byte{42}, got)
	})

	t.Run("Maintenance", func(t *testing.T) {
		db := newStorage(t)

		require.NoError(t, db.Put("ee", []byte("data")))
		assert.NoError(t, db.Maintain(context.Background()))
		assert.NoError(t, db.MaintainThorough(context.Background()))
		assert.False(t, db.ReadOnly())
	})
}
