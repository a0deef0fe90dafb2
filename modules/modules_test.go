package modules

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tevino/abool"
)

// lifecycle records the order in which test modules are started and stopped.
type lifecycle struct {
	lock    sync.Mutex
	started []string
	stopped []string
}

func (lc *lifecycle) register(name string, deps ...string) {
	Register(name, nil,
		func() error {
			lc.lock.Lock()
			defer lc.lock.Unlock()
			lc.started = append(lc.started, name)
			return nil
		},
		func() error {
			lc.lock.Lock()
			defer lc.lock.Unlock()
			lc.stopped = append(lc.stopped, name)
			return nil
		},
		deps...,
	)
}

func (lc *lifecycle) position(list []string, name string) int {
	for i, n := range list {
		if n == name {
			return i
		}
	}
	return -1
}

func failing() error { return errors.New("test error") }

func resetModules() {
	modulesLock.Lock()
	defer modulesLock.Unlock()

	modules = make(map[string]*Module)
	startComplete.UnSet()
	startCompleteSignal = make(chan struct{})
	shutdownSignal = make(chan struct{})
	shutdownSignalClosed = abool.NewBool(false)
	shutdownCompleteSignal = make(chan struct{})
}

func TestModules(t *testing.T) { //nolint:paralleltest // Modifies global state.
	t.Run("order", testModuleOrder)
	t.Run("errors", testModuleErrors)
	t.Run("cmdline", testCmdLineOperation)
}

func testModuleOrder(t *testing.T) {
	resetModules()

	lc := &lifecycle{}
	lc.register("config")
	lc.register("random", "config")
	lc.register("entropy", "config", "random")
	lc.register("sampling", "entropy", "random")
	lc.register("dispatch", "entropy")

	require.NoError(t, Start())
	assert.True(t, StartCompleted())
	assert.Len(t, lc.started, 5)

	// Every module starts after and stops before all of its dependencies.
	deps := map[string][]string{
		"random":   {"config"},
		"entropy":  {"config", "random"},
		"sampling": {"entropy", "random"},
		"dispatch": {"entropy"},
	}

	shutdownSeen := make(chan struct{})
	go func() {
		select {
		case <-ShuttingDown():
			close(shutdownSeen)
		case <-time.After(time.Second):
		}
	}()
	require.NoError(t, Shutdown())
	select {
	case <-shutdownSeen:
	case <-time.After(2 * time.Second):
		t.Error("did not receive shutdown signal")
	}
	assert.Len(t, lc.stopped, 5)

	for name, list := range deps {
		for _, dep := range list {
			assert.Less(t, lc.position(lc.started, dep), lc.position(lc.started, name),
				"%s must start after %s, order: %s", name, dep, strings.Join(lc.started, ">"))
			assert.Less(t, lc.position(lc.stopped, name), lc.position(lc.stopped, dep),
				"%s must stop before %s, order: %s", name, dep, strings.Join(lc.stopped, ">"))
		}
	}

	assert.Error(t, Shutdown(), "second shutdown must fail")
}

func testModuleErrors(t *testing.T) {
	resetModules()
	Register("prepfail", failing, nil, nil)
	assert.Error(t, Start(), "failing prep")

	resetModules()
	Register("prepcleanexit", func() error { return ErrCleanExit }, nil, nil)
	assert.ErrorIs(t, Start(), ErrCleanExit)

	resetModules()
	Register("entropy", nil, nil, nil, "missing")
	assert.Error(t, Start(), "missing dependency")

	resetModules()
	Register("entropy", nil, nil, nil, "sampling")
	Register("sampling", nil, nil, nil, "entropy")
	assert.Error(t, Start(), "dependency loop")

	resetModules()
	Register("startfail", nil, failing, nil)
	assert.Error(t, Start(), "failing start")

	resetModules()
	Register("stopfail", nil, nil, failing)
	require.NoError(t, Start())
	assert.Error(t, Shutdown(), "failing stop")

	resetModules()
	HelpFlag = true
	defer func() { HelpFlag = false }()
	assert.Error(t, Start(), "help flag")
}

func testCmdLineOperation(t *testing.T) {
	resetModules()
	defer SetCmdLineOperation(nil)

	var ran bool
	Register("cmdline", nil, failing, nil)
	SetCmdLineOperation(func() error {
		ran = true
		return nil
	})

	// The operation replaces starting the modules.
	assert.ErrorIs(t, Start(), ErrCleanExit)
	assert.True(t, ran)
}
