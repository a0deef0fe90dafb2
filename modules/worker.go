package modules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safing/entropool/log"
)

const (
	// DefaultBackoffDuration is the base wait between service worker restarts.
	DefaultBackoffDuration = 2 * time.Second

	// failStreakReset is how long a service worker must run without failing
	// for its backoff to start over.
	failStreakReset = 5 * time.Minute
)

var (
	// ErrRestartNow may be returned (wrapped) by service workers to request an immediate restart.
	ErrRestartNow = errors.New("requested restart")

	errNoModule = errors.New("missing module (is nil!)")
)

// track registers a running worker and returns the function to call once
// it has finished.
func (m *Module) track() (untrack func()) {
	m.workers.Add(1)
	return func() {
		m.workers.Add(-1)
		m.checkIfStopComplete()
	}
}

// StartWorker runs fn in a new goroutine and returns immediately. Failures
// are logged.
func (m *Module) StartWorker(name string, fn func(context.Context) error) {
	go func() {
		err := m.RunWorker(name, fn)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			log.Debugf("%s: worker %s was canceled: %s", m.Name, name, err)
		} else {
			log.Errorf("%s: worker %s failed: %s", m.Name, name, err)
		}
	}()
}

// RunWorker runs fn with the module context and blocks until it returns.
// Panics are recovered and returned as errors.
func (m *Module) RunWorker(name string, fn func(context.Context) error) error {
	if m == nil {
		log.Errorf(`modules: cannot start worker "%s" with nil module`, name)
		return errNoModule
	}

	defer m.track()()
	return m.runWorker(name, fn)
}

// StartServiceWorker runs fn in a new goroutine and restarts it whenever it
// fails. The wait before a restart is backoffDuration (or
// DefaultBackoffDuration if zero) multiplied by the number of consecutive
// failures. The worker ends once fn returns nil or context.Canceled, or the
// module stops. Returning ErrRestartNow restarts without waiting.
func (m *Module) StartServiceWorker(name string, backoffDuration time.Duration, fn func(context.Context) error) {
	if m == nil {
		log.Errorf(`modules: cannot start service worker "%s" with nil module`, name)
		return
	}
	if backoffDuration <= 0 {
		backoffDuration = DefaultBackoffDuration
	}

	go m.runServiceWorker(name, backoffDuration, fn)
}

func (m *Module) runServiceWorker(name string, backoffDuration time.Duration, fn func(context.Context) error) {
	defer m.track()()

	var (
		streak   int
		lastFail time.Time
	)
	for !m.IsStopping() {
		err := m.runWorker(name, fn)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			return
		case errors.Is(err, ErrRestartNow):
			continue
		}

		if time.Since(lastFail) > failStreakReset {
			streak = 0
		}
		streak++
		lastFail = time.Now()

		wait := time.Duration(streak) * backoffDuration
		log.Errorf("%s: service-worker %s failed (%d): %s - restarting in %s", m.Name, name, streak, err, wait)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-m.Ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (m *Module) runWorker(name string, fn func(context.Context) error) (err error) {
	defer Recoverf(m, &err, name, "worker")

	return fn(m.Ctx)
}

// runCtrlFnWithTimeout runs a module control function, but gives up
// waiting for it after timeout.
func (m *Module) runCtrlFnWithTimeout(name string, timeout time.Duration, fn func() error) error {
	if fn == nil {
		return nil
	}

	result := make(chan error, 1)
	go func() {
		result <- m.runCtrlFn(name, fn)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-result:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out (%s)", timeout)
	}
}

func (m *Module) runCtrlFn(name string, fn func() error) (err error) {
	defer Recoverf(m, &err, name, "module-control")

	return fn()
}
