package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if err := prep(); err != nil {
		panic(err)
	}
	if err := Start(); err != nil {
		panic(err)
	}
}

func TestNewCipher(t *testing.T) { //nolint:paralleltest // Swaps the cipher option.
	defer func(orig func() string) { rngCipherOption = orig }(rngCipherOption)

	key := make([]byte, 16)
	for name, ok := range map[string]bool{
		"aes":     true,
		"serpent": true,
		"none":    false,
	} {
		rngCipherOption = func() string { return name }
		_, err := newCipher(key)
		if ok {
			assert.NoError(t, err, name)
		} else {
			assert.Error(t, err, name)
		}
	}
}

func TestRead(t *testing.T) {
	t.Parallel()

	b := make([]byte, 32)
	n, err := Read(b)
	require.NoError(t, err)
	assert.Equal(t, 32, n)

	// Consecutive reads differ.
	c := make([]byte, 32)
	_, err = Reader.Read(c)
	require.NoError(t, err)
	assert.NotEqual(t, b, c)
}
