package modules

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tevino/abool"

	"github.com/safing/entropool/log"
)

var (
	startComplete       = abool.NewBool(false)
	startCompleteSignal = make(chan struct{})
)

// StartCompleted returns whether starting has completed.
func StartCompleted() bool {
	return startComplete.IsSet()
}

// WaitForStartCompletion returns a channel that is closed once starting has completed.
func WaitForStartCompletion() <-chan struct{} {
	return startCompleteSignal
}

// Start prepares and starts all registered modules in dependency order.
// Errors are printed to stderr, as logging may not be available yet.
func Start() error {
	modulesLock.RLock()
	defer modulesLock.RUnlock()

	critical := func(msg string, err error) error {
		if !errors.Is(err, ErrCleanExit) {
			fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %s%s\n", msg, err)
		}
		return err
	}

	if err := initDependencies(); err != nil {
		return critical("failed to initialize modules: ", err)
	}
	if err := parseFlags(); err != nil {
		return critical("failed to parse flags: ", err)
	}
	if err := prepareModules(); err != nil {
		return critical("", err)
	}
	if err := log.Start(); err != nil {
		return critical("failed to start logging: ", err)
	}

	if cmdLineOperation != nil {
		return runCmdLineOperation()
	}

	log.Info("modules: initiating...")
	if err := startModules(); err != nil {
		log.Critical(err.Error())
		return err
	}

	log.Infof("modules: started %d modules", len(modules))
	if startComplete.SetToIf(false, true) {
		close(startCompleteSignal)
	}
	return nil
}

type report struct {
	module *Module
	err    error
}

// phase drives one lifecycle step across all modules. Modules run as soon as
// ready reports true, so independent modules transition concurrently.
type phase struct {
	ready func(m *Module) bool
	run   func(m *Module) error
	done  func(m *Module, err error) error
}

// execute runs the phase until total modules have reported back. It fails
// early when done returns an error or when nothing is left that can run.
func (p *phase) execute(total int) error {
	if total == 0 {
		return nil
	}

	reports := make(chan *report, len(modules))
	var launched, finished int

	for {
		for _, m := range modules {
			if !p.ready(m) {
				continue
			}
			launched++
			m.inTransition.Set()
			go func(m *Module) {
				reports <- &report{module: m, err: p.run(m)}
			}(m)
		}

		if launched == finished {
			return errors.New("modules: dependency loop detected, cannot continue")
		}

		rep := <-reports
		rep.module.inTransition.UnSet()
		finished++
		if err := p.done(rep.module, rep.err); err != nil {
			return err
		}

		if finished == total {
			return nil
		}
	}
}

func prepareModules() error {
	p := &phase{
		ready: (*Module).ReadyToPrep,
		run: func(m *Module) error {
			return m.runCtrlFnWithTimeout("prep module", 10*time.Second, m.prep)
		},
		done: func(m *Module, err error) error {
			switch {
			case errors.Is(err, ErrCleanExit):
				return err
			case err != nil:
				return fmt.Errorf("failed to prep module %s: %w", m.Name, err)
			}
			m.Prepped.Set()
			return nil
		},
	}
	return p.execute(len(modules))
}

func startModules() error {
	p := &phase{
		ready: (*Module).ReadyToStart,
		run: func(m *Module) error {
			return m.runCtrlFnWithTimeout("start module", time.Minute, m.start)
		},
		done: func(m *Module, err error) error {
			if err != nil {
				return fmt.Errorf("modules: could not start module %s: %w", m.Name, err)
			}
			m.Started.Set()
			log.Infof("modules: started %s", m.Name)
			return nil
		},
	}
	return p.execute(len(modules))
}
