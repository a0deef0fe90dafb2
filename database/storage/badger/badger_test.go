package badger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/safing/entropool/database/storage"
	"github.com/safing/entropool/database/storage/storagetest"
)

func TestBadger(t *testing.T) {
	t.Parallel()

	storagetest.RunConformance(t, func(t *testing.T) storage.Interface {
		t.Helper()

		db, err := NewBadger("test", t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = db.Shutdown()
		})
		return db
	})
}
