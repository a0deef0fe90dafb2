package sampling

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededEngine(t *testing.T) *Engine {
	t.Helper()

	var seed [32]byte
	copy(seed[:], "entropool sampling test seed....")
	return NewEngine(NewReaderSource(rand.NewChaCha8(seed)), Options{})
}

// hexStub serves hex strings and fails a configurable number of times first.
type hexStub struct {
	lock     sync.Mutex
	failures int
	err      error
	result   func(n int) string
	calls    int
}

func (hs *hexStub) NextBytes(_ context.Context, n int) ([]byte, error) {
	return make([]byte, n), nil
}

func (hs *hexStub) NextHex(_ context.Context, n int) (string, error) {
	hs.lock.Lock()
	defer hs.lock.Unlock()

	hs.calls++
	if hs.failures > 0 {
		hs.failures--
		return "", hs.err
	}
	if hs.result != nil {
		return hs.result(n), nil
	}
	return strings.Repeat("a", n), nil
}

func TestBoundedIntUniform(t *testing.T) {
	t.Parallel()

	const (
		buckets = 10
		draws   = 100000
		// Chi-square critical value for 9 degrees of freedom at p=0.001.
		critical = 33.72
	)

	e := seededEngine(t)
	ctx := context.Background()

	var counts [buckets]int
	for i := 0; i < draws; i++ {
		n, err := e.NextBoundedInt(ctx, buckets)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(0))
		require.Less(t, n, int64(buckets))
		counts[n]++
	}

	expected := float64(draws) / buckets
	var chi2 float64
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	assert.Less(t, chi2, critical, "distribution is skewed: %v", counts)
}

func TestBoundedIntRejects(t *testing.T) {
	t.Parallel()

	// 0xff masks to 15, which is out of range and must be redrawn.
	e := NewEngine(NewReaderSource(bytes.NewReader([]byte{0xff, 0x05})), Options{})
	n, err := e.NextBoundedInt(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// Source runs dry.
	e = NewEngine(NewReaderSource(bytes.NewReader([]byte{0xff})), Options{})
	_, err = e.NextBoundedInt(context.Background(), 10)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestBoundedIntLargeRange(t *testing.T) {
	t.Parallel()

	// 1<<40 needs five bytes.
	data := []byte{0x00, 0x00, 0x00, 0x01, 0x02}
	e := NewEngine(NewReaderSource(bytes.NewReader(data)), Options{})
	n, err := e.NextBoundedInt(context.Background(), 1<<40)
	require.NoError(t, err)
	assert.Equal(t, int64(0x0102), n)
}

func TestIntInRange(t *testing.T) {
	t.Parallel()

	e := seededEngine(t)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		n, err := e.RequestRandomInt(ctx, -5, 5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(-5))
		assert.Less(t, n, int64(5))
	}

	for _, r := range [][2]int64{
		{5, 5},
		{5, 1},
		{7, 8},
		{-1 << 63, 1<<63 - 1},
	} {
		_, err := e.NextIntInRange(ctx, r[0], r[1])
		assert.ErrorIs(t, err, ErrInvalidRange, "range %v", r)
	}

	_, err := e.NextBoundedInt(ctx, 1)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = e.NextBoundedInt(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestHexString(t *testing.T) {
	t.Parallel()

	e := seededEngine(t)
	ctx := context.Background()

	for _, length := range []int{1, 2, 7, 64} {
		s, err := e.RequestRandomHex(ctx, length)
		require.NoError(t, err)
		assert.Len(t, s, length)
		assert.True(t, isLowerHex(s), s)
	}

	s, err := e.NextHexString(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = e.NextHexString(ctx, -1)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestHexStringRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Recovers within the attempt limit.
	stub := &hexStub{failures: 2, err: ErrSourceUnavailable}
	e := NewEngine(stub, Options{HexAttempts: 3})
	s, err := e.NextHexString(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "aaaa", s)
	assert.Equal(t, 3, stub.calls)

	// Gives up.
	stub = &hexStub{failures: 10, err: ErrSourceUnavailable}
	e = NewEngine(stub, Options{HexAttempts: 3})
	_, err = e.NextHexString(ctx, 4)
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, 3, stub.calls)

	// Malformed answers count as failures.
	stub = &hexStub{result: func(n int) string { return strings.Repeat("A", n) }}
	e = NewEngine(stub, Options{HexAttempts: 2})
	_, err = e.NextHexString(ctx, 4)
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, 2, stub.calls)

	// Other errors are returned right away.
	errBroken := errors.New("broken")
	stub = &hexStub{failures: 10, err: errBroken}
	e = NewEngine(stub, Options{HexAttempts: 5})
	_, err = e.NextHexString(ctx, 4)
	require.ErrorIs(t, err, errBroken)
	assert.Equal(t, 1, stub.calls)
}

func TestBytesFromHex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stub := &hexStub{}
	e := NewEngine(stub, Options{})
	data, err := e.NextBytesFromHex(ctx, 4, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xaa, 0xaa, 0xaa}, data)
	assert.Equal(t, 1, stub.calls)

	// Batch mode returns ten times the length.
	stub = &hexStub{}
	e = NewEngine(stub, Options{BatchCooldown: 0})
	data, err = e.NextBytesFromHex(ctx, 4, true)
	require.NoError(t, err)
	assert.Len(t, data, 40)
	assert.Equal(t, 10, stub.calls)

	_, err = e.NextBytesFromHex(ctx, 0, false)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestBytesFromHexCooldownCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	stub := &hexStub{}
	e := NewEngine(stub, Options{BatchCooldown: time.Hour})
	_, err := e.NextBytesFromHex(ctx, 4, true)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, stub.calls)
}

func TestCoordinates(t *testing.T) {
	t.Parallel()

	e := seededEngine(t)
	ctx := context.Background()

	coords, err := e.RequestCoordinates(ctx, 500)
	require.NoError(t, err)
	require.Len(t, coords, 500)
	for _, c := range coords {
		assert.GreaterOrEqual(t, c.Latitude, int64(-90))
		assert.Less(t, c.Latitude, int64(90))
		assert.GreaterOrEqual(t, c.Longitude, int64(-180))
		assert.Less(t, c.Longitude, int64(180))
	}

	coords, err = e.RequestCoordinates(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, coords)

	_, err = e.NextCoordinatePairs(ctx, 1, 360, 1)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = e.NextCoordinatePairs(ctx, 180, 360, -1)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDouble(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := NewEngine(NewReaderSource(bytes.NewReader(bytes.Repeat([]byte{0xff}, 8))), Options{})
	f, err := e.NextDouble(ctx)
	require.NoError(t, err)
	assert.Less(t, f, 1.0)

	e = NewEngine(NewReaderSource(bytes.NewReader(make([]byte, 8))), Options{})
	f, err = e.NextDouble(ctx)
	require.NoError(t, err)
	assert.Zero(t, f)

	e = seededEngine(t)
	for i := 0; i < 1000; i++ {
		f, err := e.NextDouble(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}
