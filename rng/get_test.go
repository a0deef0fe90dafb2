package rng

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLargeRead(t *testing.T) {
	t.Parallel()

	data := make([]byte, 3*maxChunkSize+17)
	_, err := io.ReadFull(Reader, data)
	require.NoError(t, err)

	// The tail is filled by the last, partial chunk.
	assert.NotEqual(t, make([]byte, 17), data[len(data)-17:])
}
