package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCallLimiterBundles(t *testing.T) {
	t.Parallel()

	limiter := NewCallLimiter(0)
	release := make(chan struct{})
	var calls atomic.Int64

	// The first call blocks, all others join the pending batch behind it.
	started := make(chan struct{})
	go limiter.Do(func() {
		close(started)
		<-release
		calls.Add(1)
	})
	<-started

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.Do(func() {
				calls.Add(1)
			})
		}()
	}

	// Give the callers time to queue up.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// One for the blocking call, one for the bundled batch.
	assert.Equal(t, int64(2), calls.Load())
}

func TestCallLimiterPause(t *testing.T) {
	t.Parallel()

	const pause = 50 * time.Millisecond
	limiter := NewCallLimiter(pause)

	start := time.Now()
	for i := 0; i < 3; i++ {
		limiter.Do(func() {})
	}
	assert.GreaterOrEqual(t, time.Since(start), 2*pause)
}
