package modules

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	wModule = initNewModule("worker test module", nil, nil, nil)
	errTest = errors.New("test error")
)

func TestRunWorker(t *testing.T) { //nolint:paralleltest // Shares the worker module.
	assert.NoError(t, wModule.RunWorker("ok", func(_ context.Context) error {
		return nil
	}))

	err := wModule.RunWorker("failing", func(_ context.Context) error {
		return fmt.Errorf("wrapped: %w", errTest)
	})
	assert.ErrorIs(t, err, errTest)

	err = wModule.RunWorker("panicking", func(_ context.Context) error {
		var m map[string]int
		m["boom"]++
		return nil
	})
	panicked, mErr := IsPanic(err)
	require.True(t, panicked, "expected a panic error, got %v", err)
	assert.NotEmpty(t, mErr.StackTrace)
}

func TestServiceWorkerRestarts(t *testing.T) { //nolint:paralleltest // Shares the worker module.
	var runs atomic.Int64
	done := make(chan struct{})

	wModule.StartServiceWorker("restarting", time.Millisecond, func(_ context.Context) error {
		switch runs.Add(1) {
		case 1:
			return errTest
		case 2:
			return ErrRestartNow
		default:
			close(done)
			return nil
		}
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("service worker was not restarted")
	}
	assert.Equal(t, int64(3), runs.Load())
}

func TestStartWorker(t *testing.T) { //nolint:paralleltest // Shares the worker module.
	done := make(chan struct{})
	wModule.StartWorker("background", func(_ context.Context) error {
		close(done)
		return errTest
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not run")
	}
}
