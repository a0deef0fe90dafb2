package rng

import (
	"context"
	"encoding/binary"
	"time"
)

const (
	// minTickInterval keeps ticks far enough apart for scheduler jitter to
	// show in the low bit of the clock.
	minTickInterval = 10 * time.Millisecond

	// Every tick contributes one bit, credited as an eighth of a bit of
	// entropy.
	ticksPerEntropyBit = 8
)

// getTickFeederTickDuration spreads the ticks needed for one full feed over
// a tenth of the reseed interval.
func getTickFeederTickDuration() time.Duration {
	window := time.Duration(reseedAfterSeconds()) * time.Second / 10
	ticksNeeded := time.Duration(minFeedEntropy() * ticksPerEntropyBit)

	interval := window / ticksNeeded
	if interval < minTickInterval {
		return minTickInterval
	}
	return interval.Truncate(time.Millisecond)
}

// tickFeeder collects the lowest bit of the clock every tick and supplies
// every 64 collected bits to the generator. The busier the process, the
// more the actual wake-up time deviates from the scheduled one.
func tickFeeder(ctx context.Context) error {
	feeder := NewFeeder()
	defer feeder.CloseFeeder()

	var (
		bits  uint64
		count int
	)
	timer := time.NewTimer(getTickFeederTickDuration())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		bits = bits<<1 | uint64(time.Now().UnixNano()&1)
		count++
		if count == 64 {
			feeder.SupplyEntropyIfNeeded(binary.LittleEndian.AppendUint64(nil, bits), 64/ticksPerEntropyBit)
			count = 0
		}

		timer.Reset(getTickFeederTickDuration())
	}
}
