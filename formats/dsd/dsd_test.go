package dsd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Address string    `json:"address" cbor:"address" msgpack:"address"`
	Size    int       `json:"size" cbor:"size" msgpack:"size"`
	Created time.Time `json:"created" cbor:"created" msgpack:"created"`
	Content string    `json:"content,omitempty" cbor:"content,omitempty" msgpack:"content,omitempty"`
}

func TestConversion(t *testing.T) {
	t.Parallel()

	subject := &testRecord{
		Address: "fbd5a7e1e6f0b5c8d8f1a0c36aa0f25e1d5a3c3d7c4b1a0e5f6d7c8b9a0f1e2d",
		Size:    3,
		Created: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		Content: "a1b2c3",
	}

	for _, format := range []SerializationFormat{AUTO, JSON, CBOR, MsgPack} {
		data, err := Dump(subject, format)
		require.NoError(t, err, "dump format %d", format)

		loaded := &testRecord{}
		loadedFormat, err := Load(data, loaded)
		require.NoError(t, err, "load format %d", format)
		validated, _ := format.ValidateSerializationFormat()
		assert.Equal(t, validated, loadedFormat)
		assert.Equal(t, subject.Address, loaded.Address)
		assert.Equal(t, subject.Size, loaded.Size)
		assert.True(t, subject.Created.Equal(loaded.Created), "created time mismatch for format %d", format)
		assert.Equal(t, subject.Content, loaded.Content)
	}
}

func TestCompression(t *testing.T) {
	t.Parallel()

	subject := &testRecord{Address: "00ff", Size: 2, Content: "0000000000000000000000000000"}
	data, err := DumpAndCompress(subject, CBOR, AutoCompress)
	require.NoError(t, err)

	loaded := &testRecord{}
	format, err := Load(data, loaded)
	require.NoError(t, err)
	assert.Equal(t, CBOR, format)
	assert.Equal(t, subject.Content, loaded.Content)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(nil, &testRecord{})
	assert.Error(t, err)

	_, err = Load([]byte{byte(JSON)}, &testRecord{})
	assert.ErrorIs(t, err, ErrNoMoreSpace)

	_, err = Load([]byte{byte(RAW), 0x01}, &testRecord{})
	assert.ErrorIs(t, err, ErrIsRaw)

	_, err = Load([]byte{'X', 0x01}, &testRecord{})
	assert.ErrorIs(t, err, ErrIncompatibleFormat)

	_, err = Dump(subjectFunc, JSON)
	assert.Error(t, err)
}

var subjectFunc = func() {}
