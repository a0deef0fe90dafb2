package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	err := Register("test-registry", func(name, location string) (Interface, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Error(t, Register("test-registry", nil), "duplicate registration must fail")
	assert.Contains(t, Types(), "test-registry")

	_, err = StartDatabase("test", "unknown-type", t.TempDir())
	assert.ErrorIs(t, err, ErrUnknownStorageType)
}

func TestIteratorCancel(t *testing.T) {
	t.Parallel()

	it := NewIterator()
	it.Cancel()
	it.Cancel()

	ok, err := it.Push(&Entry{Key: "a"})
	// either delivered to the buffer or dropped because of the cancel
	if !ok {
		assert.NoError(t, err)
	}

	it.Finish(nil)
	assert.NoError(t, it.Err())
}
