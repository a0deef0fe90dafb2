package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorithms(t *testing.T) {
	t.Parallel()

	for alg, name := range names {
		assert.Equal(t, name, alg.String())
		assert.Equal(t, 32, alg.Size(), "size of %s", name)

		parsed, ok := ParseAlgorithm(name)
		assert.True(t, ok)
		assert.Equal(t, alg, parsed)

		addr := alg.Address([]byte("entropy"))
		assert.NoError(t, alg.CheckAddress(addr))
		assert.True(t, alg.Verify(addr, []byte("entropy")))
		assert.False(t, alg.Verify(addr, []byte("entropz")))
	}

	noAlg := Algorithm(255)
	assert.Equal(t, "", noAlg.String())
	assert.Nil(t, noAlg.New())
	assert.Equal(t, 0, noAlg.Size())
}

func TestAddress(t *testing.T) {
	t.Parallel()

	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		Address([]byte("abc")),
	)

	assert.Error(t, SHA2_256.CheckAddress("abc"))
	assert.ErrorIs(t, SHA2_256.CheckAddress("BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD"), ErrInvalidAddress)
}

func TestCID(t *testing.T) {
	t.Parallel()

	data := []byte("abc")
	c, err := CID(data)
	require.NoError(t, err)

	fromAddr, err := CIDFromAddress(Address(data))
	require.NoError(t, err)
	assert.True(t, c.Equals(fromAddr))

	addr, err := AddressFromCID(c.String())
	require.NoError(t, err)
	assert.Equal(t, Address(data), addr)

	_, err = AddressFromCID("not-a-cid")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
