package utils

import (
	"sync"
	"time"
)

// CallLimiter bundles concurrent calls and optionally limits how fast a function is called.
type CallLimiter struct {
	pause time.Duration

	batchLock sync.Mutex
	batch     *callBatch

	execLock sync.Mutex
	lastExec time.Time
}

type callBatch struct {
	done chan struct{}
}

// NewCallLimiter returns a new call limiter.
// Set minPause to zero to disable the minimum pause between calls.
func NewCallLimiter(minPause time.Duration) *CallLimiter {
	return &CallLimiter{
		pause: minPause,
	}
}

// Do executes the given function.
// All concurrent calls to Do are bundled and return when f() finishes.
// Waits until the minimum pause is over before executing f() again.
func (l *CallLimiter) Do(f func()) {
	// Join a pending batch, if there is one.
	l.batchLock.Lock()
	if l.batch != nil {
		b := l.batch
		l.batchLock.Unlock()
		<-b.done
		return
	}
	b := &callBatch{done: make(chan struct{})}
	l.batch = b
	l.batchLock.Unlock()

	// Wait for the previous execution and the pause.
	l.execLock.Lock()
	defer l.execLock.Unlock()
	if l.pause > 0 {
		if wait := time.Until(l.lastExec.Add(l.pause)); wait > 0 {
			time.Sleep(wait)
		}
	}

	// Close the batch, later calls start a new one.
	l.batchLock.Lock()
	l.batch = nil
	l.batchLock.Unlock()

	defer func() {
		l.lastExec = time.Now()
		close(b.done)
	}()
	f()
}
