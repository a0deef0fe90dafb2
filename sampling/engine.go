package sampling

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/safing/entropool/log"
	"github.com/safing/entropool/qrng"
)

// Engine defaults.
const (
	DefaultHexAttempts   = 5
	DefaultBatchCooldown = 30 * time.Second

	// batchFactor is how much more entropy batch mode collects.
	batchFactor = 10
)

// Options configures an Engine.
type Options struct {
	HexAttempts   int
	BatchCooldown time.Duration
}

// Engine turns raw entropy into unbiased values.
type Engine struct {
	src  ByteSource
	hex  HexSource
	opts Options
}

// Pair is a pair of integers drawn from two ranges.
type Pair struct {
	Lat int64 `json:"lat"`
	Lon int64 `json:"lon"`
}

// NewEngine returns a new engine drawing from src. If src also implements
// HexSource, hex strings are requested from it directly.
func NewEngine(src ByteSource, opts Options) *Engine {
	if opts.HexAttempts <= 0 {
		opts.HexAttempts = DefaultHexAttempts
	}
	if opts.BatchCooldown < 0 {
		opts.BatchCooldown = 0
	}

	e := &Engine{
		src:  src,
		opts: opts,
	}
	if hs, ok := src.(HexSource); ok {
		e.hex = hs
	} else {
		e.hex = bytesAsHex{src: src}
	}
	return e
}

// NextByte returns a single random byte.
func (e *Engine) NextByte(ctx context.Context) (byte, error) {
	data, err := e.src.NextBytes(ctx, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// NextBoundedInt returns a uniformly distributed integer in [0, max).
// Values are drawn with the minimal amount of bits and rejected if they are
// out of range, so that no modulo bias is introduced.
func (e *Engine) NextBoundedInt(ctx context.Context, max int64) (int64, error) {
	if max <= 1 {
		return 0, fmt.Errorf("%w: upper bound %d must be greater than 1", ErrInvalidRange, max)
	}

	bitLen := bits.Len64(uint64(max - 1))
	byteLen := (bitLen + 7) / 8
	mask := uint64(1)<<bitLen - 1

	buf := make([]byte, 8)
	for {
		data, err := e.src.NextBytes(ctx, byteLen)
		if err != nil {
			return 0, err
		}

		clear(buf)
		copy(buf[8-byteLen:], data)
		candidate := binary.BigEndian.Uint64(buf) & mask
		if candidate < uint64(max) {
			return int64(candidate), nil
		}
	}
}

// NextIntInRange returns a uniformly distributed integer in [min, max).
func (e *Engine) NextIntInRange(ctx context.Context, min, max int64) (int64, error) {
	if max <= min {
		return 0, fmt.Errorf("%w: [%d, %d) is empty", ErrInvalidRange, min, max)
	}
	width := max - min
	if width < 0 {
		return 0, fmt.Errorf("%w: [%d, %d) is too wide", ErrInvalidRange, min, max)
	}
	if width <= 1 {
		return 0, fmt.Errorf("%w: [%d, %d) has only one value", ErrInvalidRange, min, max)
	}

	n, err := e.NextBoundedInt(ctx, width)
	if err != nil {
		return 0, err
	}
	return min + n, nil
}

// NextHexString returns exactly length lowercase hex characters.
// Retryable source errors are retried a limited amount of times.
func (e *Engine) NextHexString(ctx context.Context, length int) (string, error) {
	switch {
	case length < 0:
		return "", fmt.Errorf("%w: negative length %d", ErrInvalidRange, length)
	case length == 0:
		return "", nil
	}

	var errs *multierror.Error
	for attempt := 1; attempt <= e.opts.HexAttempts; attempt++ {
		s, err := e.hex.NextHex(ctx, length)
		if err == nil {
			if len(s) != length || !isLowerHex(s) {
				err = fmt.Errorf("%w: got malformed hex string of length %d", ErrSourceUnavailable, len(s))
			} else {
				return s, nil
			}
		}

		if !qrng.IsRetryable(err) {
			return "", err
		}
		errs = multierror.Append(errs, fmt.Errorf("attempt %d: %w", attempt, err))
		if ctx.Err() != nil {
			break
		}
		log.Debugf("sampling: failed to get hex string (attempt %d/%d): %s", attempt, e.opts.HexAttempts, err)
	}

	return "", fmt.Errorf("%w: giving up after %d attempts: %s", ErrSourceUnavailable, len(errs.Errors), errs.Error())
}

// NextBytesFromHex returns random bytes converted from hex characters.
// In batch mode, length*20 hex characters are collected with a cool-down
// between fetches and length*10 bytes are returned.
func (e *Engine) NextBytesFromHex(ctx context.Context, length int, batch bool) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length %d must be positive", ErrInvalidRange, length)
	}

	if !batch {
		s, err := e.NextHexString(ctx, length*2)
		if err != nil {
			return nil, err
		}
		return hex.DecodeString(s)
	}

	target := length * 2 * batchFactor
	collected := make([]byte, 0, target)
	for len(collected) < target {
		if len(collected) > 0 && e.opts.BatchCooldown > 0 {
			if err := sleep(ctx, e.opts.BatchCooldown); err != nil {
				return nil, err
			}
		}

		s, err := e.NextHexString(ctx, length*2)
		if err != nil {
			return nil, err
		}
		collected = append(collected, s...)
	}

	return hex.DecodeString(string(collected[:target]))
}

// NextCoordinatePairs returns count pairs, each drawn from [0, latRange) and
// [0, lonRange).
func (e *Engine) NextCoordinatePairs(ctx context.Context, latRange, lonRange int64, count int) ([]Pair, error) {
	if latRange <= 1 || lonRange <= 1 {
		return nil, fmt.Errorf("%w: ranges %d and %d must be greater than 1", ErrInvalidRange, latRange, lonRange)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrInvalidRange, count)
	}

	pairs := make([]Pair, 0, count)
	for i := 0; i < count; i++ {
		lat, err := e.NextBoundedInt(ctx, latRange)
		if err != nil {
			return nil, err
		}
		lon, err := e.NextBoundedInt(ctx, lonRange)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Lat: lat, Lon: lon})
	}
	return pairs, nil
}

// NextDouble returns a random float in [0, 1).
func (e *Engine) NextDouble(ctx context.Context) (float64, error) {
	data, err := e.src.NextBytes(ctx, 8)
	if err != nil {
		return 0, err
	}

	n := binary.BigEndian.Uint64(data) >> 1
	f := float64(n) / math.MaxInt64
	if f >= 1 {
		f = math.Nextafter(1, 0)
	}
	return f, nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
