package modules

import (
	"errors"
	"fmt"

	"github.com/tevino/abool"

	"github.com/safing/entropool/log"
)

var (
	shutdownSignal         = make(chan struct{})
	shutdownSignalClosed   = abool.NewBool(false)
	shutdownCompleteSignal = make(chan struct{})
)

// IsShuttingDown returns whether the global shutdown is in progress.
func IsShuttingDown() bool {
	return shutdownSignalClosed.IsSet()
}

// ShuttingDown returns a channel read on the global shutdown signal.
func ShuttingDown() <-chan struct{} {
	return shutdownSignal
}

// Shutdown stops all modules in the correct order.
func Shutdown() error {
	if !shutdownSignalClosed.SetToIf(false, true) {
		return errors.New("shutdown already initiated")
	}
	close(shutdownSignal)

	if startComplete.IsSet() {
		log.Warning("modules: starting shutdown...")
	} else {
		log.Warning("modules: aborting, shutting down...")
	}

	err := stopModules()
	if err != nil {
		log.Errorf("modules: shutdown completed with error: %s", err)
	} else {
		log.Info("modules: shutdown completed")
	}

	log.Shutdown()
	close(shutdownCompleteSignal)
	return err
}

func stopModules() error {
	modulesLock.RLock()
	defer modulesLock.RUnlock()

	var started int
	for _, m := range modules {
		if m.Started.IsSet() {
			started++
		}
	}

	var lastErr error
	p := &phase{
		ready: (*Module).ReadyToStop,
		run:   (*Module).stopModule,
		done: func(m *Module, err error) error {
			if err != nil {
				lastErr = fmt.Errorf("modules: could not stop module %s: %w", m.Name, err)
				log.Warning(lastErr.Error())
			}
			m.Stopped.Set()
			log.Infof("modules: stopped %s", m.Name)
			return nil
		},
	}
	if err := p.execute(started); err != nil {
		return err
	}
	return lastErr
}

var exitStatusCode int

// SetExitStatusCode sets the exit code that the program shall return to the host after shutdown.
func SetExitStatusCode(n int) {
	exitStatusCode = n
}

// GetExitStatusCode waits for the shutdown to complete and then returns the exit code.
func GetExitStatusCode() int {
	<-shutdownCompleteSignal
	return exitStatusCode
}
