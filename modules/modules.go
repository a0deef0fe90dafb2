package modules

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"

	"github.com/safing/entropool/log"
)

const (
	workerStopTimeout = 3 * time.Second
	stopFnTimeout     = 10 * time.Second
)

var (
	modulesLock sync.RWMutex
	modules     = make(map[string]*Module)

	// ErrCleanExit is returned by Start() when the program should exit
	// without starting, for example when only the version was requested.
	ErrCleanExit = errors.New("clean exit requested")
)

// Module is a part of the program with its own lifecycle. Modules are
// prepared and started after, and stopped before, their dependencies.
type Module struct {
	Name string

	Prepped      *abool.AtomicBool
	Started      *abool.AtomicBool
	Stopped      *abool.AtomicBool
	inTransition *abool.AtomicBool

	prep  func() error
	start func() error
	stop  func() error

	// Ctx is canceled when the module starts to stop.
	Ctx          context.Context
	cancelCtx    context.CancelFunc
	shutdownFlag *abool.AtomicBool
	workers      atomic.Int32
	stopComplete chan struct{}

	depNames   []string
	depModules []*Module
	depReverse []*Module
}

// Register registers a new module. All control functions are optional. stop
// is called after all workers of the module have finished.
func Register(name string, prep, start, stop func() error, dependencies ...string) *Module {
	m := initNewModule(name, prep, start, stop, dependencies...)

	modulesLock.Lock()
	defer modulesLock.Unlock()

	modules[name] = m
	return m
}

func initNewModule(name string, prep, start, stop func() error, dependencies ...string) *Module {
	ctx, cancel := context.WithCancel(context.Background())
	return &Module{
		Name:         name,
		Prepped:      abool.New(),
		Started:      abool.New(),
		Stopped:      abool.New(),
		inTransition: abool.New(),
		prep:         prep,
		start:        start,
		stop:         stop,
		Ctx:          ctx,
		cancelCtx:    cancel,
		shutdownFlag: abool.New(),
		stopComplete: make(chan struct{}, 1),
		depNames:     dependencies,
	}
}

// IsStopping returns whether the module has started shutting down.
func (m *Module) IsStopping() bool {
	return m.shutdownFlag.IsSet()
}

// Stopping returns a channel that is closed when the module starts to stop.
func (m *Module) Stopping() <-chan struct{} {
	return m.Ctx.Done()
}

// ActiveWorkers returns the number of currently running workers.
func (m *Module) ActiveWorkers() int {
	return int(m.workers.Load())
}

func (m *Module) checkIfStopComplete() {
	if !m.IsStopping() || m.workers.Load() != 0 {
		return
	}
	select {
	case m.stopComplete <- struct{}{}:
	default:
	}
}

func (m *Module) stopModule() error {
	m.shutdownFlag.Set()
	m.cancelCtx()

	m.checkIfStopComplete()
	timer := time.NewTimer(workerStopTimeout)
	select {
	case <-m.stopComplete:
		timer.Stop()
	case <-timer.C:
		log.Warningf("%s: timed out while waiting for %d workers to finish", m.Name, m.workers.Load())
	}

	return m.runCtrlFnWithTimeout("stop module", stopFnTimeout, m.stop)
}

// initDependencies links all modules with their dependencies. Existing
// links are reset, so that tests may start repeatedly.
func initDependencies() error {
	for _, m := range modules {
		m.depModules = nil
		m.depReverse = nil
	}

	for _, m := range modules {
		for _, name := range m.depNames {
			dep, ok := modules[name]
			if !ok {
				return fmt.Errorf("module %s declares dependency %q, but this module has not been registered", m.Name, name)
			}
			m.depModules = append(m.depModules, dep)
			dep.depReverse = append(dep.depReverse, m)
		}
	}
	return nil
}

func all(mods []*Module, fn func(*Module) bool) bool {
	for _, m := range mods {
		if !fn(m) {
			return false
		}
	}
	return true
}

// ReadyToPrep returns whether all dependencies are prepped.
func (m *Module) ReadyToPrep() bool {
	if m.inTransition.IsSet() || m.Prepped.IsSet() {
		return false
	}
	return all(m.depModules, func(dep *Module) bool { return dep.Prepped.IsSet() })
}

// ReadyToStart returns whether all dependencies are started.
func (m *Module) ReadyToStart() bool {
	if m.inTransition.IsSet() || m.Started.IsSet() {
		return false
	}
	return all(m.depModules, func(dep *Module) bool { return dep.Started.IsSet() })
}

// ReadyToStop returns whether no module depending on this one is still
// running.
func (m *Module) ReadyToStop() bool {
	if !m.Started.IsSet() || m.inTransition.IsSet() || m.Stopped.IsSet() {
		return false
	}
	return all(m.depReverse, func(rev *Module) bool { return !rev.Started.IsSet() || rev.Stopped.IsSet() })
}
