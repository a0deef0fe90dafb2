// Package run runs the full program lifecycle of a module based program.
package run

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/safing/entropool/config"
	"github.com/safing/entropool/log"
	"github.com/safing/entropool/modules"
)

const (
	shutdownTimeout = 3 * time.Minute
	forceExitCount  = 5
)

var (
	printStackOnExit   bool
	enableInputSignals bool
)

func init() {
	flag.BoolVar(&printStackOnExit, "print-stack-on-exit", false, "print the stack before shutting down")
	flag.BoolVar(&enableInputSignals, "input-signals", false, "emulate signals using stdin")
}

// Run executes the full program lifecycle, including signal handling. Blank
// import the required module packages and call os.Exit(run.Run()).
//
// SIGHUP reloads the configuration, SIGUSR1 prints the goroutine stacks and
// all other handled signals shut down the program.
func Run() int {
	err := modules.Start()
	if err != nil {
		if errors.Is(err, modules.ErrCleanExit) {
			return 0
		}

		if printStackOnExit {
			printStackTo(os.Stdout)
		}

		_ = modules.Shutdown()
		return modules.GetExitStatusCode()
	}

	signalCh := make(chan os.Signal, 1)
	if enableInputSignals {
		go inputSignals(signalCh)
	}
	signal.Notify(signalCh, handledSignals...)
	defer signal.Stop(signalCh)

	for {
		select {
		case sig := <-signalCh:
			switch {
			case sig == syscall.SIGHUP:
				reloadConfig()
				continue
			case isStackSignal(sig):
				_ = pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)
				continue
			}

			fmt.Println(" <INTERRUPT>")
			log.Warningf("run: received %s, shutting down", sig)
			shutdown(signalCh)
			return modules.GetExitStatusCode()

		case <-modules.ShuttingDown():
			return modules.GetExitStatusCode()
		}
	}
}

func reloadConfig() {
	if err := config.Reload(); err != nil {
		log.Errorf("run: failed to reload config: %s", err)
		return
	}
	log.Info("run: reloaded config")
}

func shutdown(signalCh chan os.Signal) {
	// Force exit if interrupted often enough during shutdown.
	go func() {
		for left := forceExitCount - 1; ; left-- {
			<-signalCh
			if left > 0 {
				fmt.Printf(" <INTERRUPT> again, but already shutting down. %d more to force.\n", left)
				continue
			}
			fmt.Fprintln(os.Stderr, "===== FORCED EXIT =====")
			printStackTo(os.Stderr)
			os.Exit(1)
		}
	}()

	if printStackOnExit {
		printStackTo(os.Stdout)
	}

	go func() {
		time.Sleep(shutdownTimeout)
		fmt.Fprintln(os.Stderr, "===== TAKING TOO LONG FOR SHUTDOWN =====")
		printStackTo(os.Stderr)
		os.Exit(1)
	}()

	_ = modules.Shutdown()
}

func inputSignals(signalCh chan os.Signal) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if sig, ok := inputSignalNames[scanner.Text()]; ok {
			signalCh <- sig
		}
	}
}

func printStackTo(writer io.Writer) {
	fmt.Fprintln(writer, "=== PRINTING TRACES ===")
	for _, profile := range []string{"goroutine", "block", "mutex"} {
		fmt.Fprintf(writer, "=== %s ===\n", profile)
		_ = pprof.Lookup(profile).WriteTo(writer, 1)
	}
	fmt.Fprintln(writer, "=== END TRACES ===")
}
