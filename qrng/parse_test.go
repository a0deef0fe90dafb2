package qrng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes(t *testing.T) {
	t.Parallel()

	units, err := ParseBytes([]byte(`{"type":"uint8","length":4,"size":1,"data":[0,17,128,255],"success":true}`), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 17, 128, 255}, units)

	malformed := map[string]string{
		"invalid json":     `{"type":"uint8",`,
		"not successful":   `{"type":"uint8","length":2,"size":1,"data":[1,2],"success":false}`,
		"missing success":  `{"type":"uint8","length":2,"size":1,"data":[1,2]}`,
		"wrong type":       `{"type":"hex16","length":2,"size":1,"data":[1,2],"success":true}`,
		"declared less":    `{"type":"uint8","length":1,"size":1,"data":[1],"success":true}`,
		"count mismatch":   `{"type":"uint8","length":2,"size":1,"data":[1],"success":true}`,
		"out of range":     `{"type":"uint8","length":2,"size":1,"data":[1,256],"success":true}`,
		"negative":         `{"type":"uint8","length":2,"size":1,"data":[-1,2],"success":true}`,
		"fraction":         `{"type":"uint8","length":2,"size":1,"data":[1.5,2],"success":true}`,
		"string unit":      `{"type":"uint8","length":2,"size":1,"data":["1",2],"success":true}`,
		"data not array":   `{"type":"uint8","length":2,"size":1,"data":"12","success":true}`,
		"length as string": `{"type":"uint8","length":"2","size":1,"data":[1,2],"success":true}`,
	}
	for name, payload := range malformed {
		_, err := ParseBytes([]byte(payload), 2)
		assert.ErrorIs(t, err, ErrSourceUnavailable, name)
	}
}

func TestParseHex(t *testing.T) {
	t.Parallel()

	units, err := ParseHex([]byte(`{"type":"hex16","length":3,"size":1,"data":["00","aF","ff"],"success":true}`), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"00", "af", "ff"}, units)

	malformed := map[string]string{
		"short unit":   `{"type":"hex16","length":2,"size":1,"data":["0","ff"],"success":true}`,
		"long unit":    `{"type":"hex16","length":2,"size":1,"data":["000","ff"],"success":true}`,
		"not hex":      `{"type":"hex16","length":2,"size":1,"data":["zz","ff"],"success":true}`,
		"number unit":  `{"type":"hex16","length":2,"size":1,"data":[12,"ff"],"success":true}`,
		"missing unit": `{"type":"hex16","length":2,"size":1,"data":["ff"],"success":true}`,
	}
	for name, payload := range malformed {
		_, err := ParseHex([]byte(payload), 2)
		assert.ErrorIs(t, err, ErrSourceUnavailable, name)
	}
}
