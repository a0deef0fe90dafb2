//go:build !windows

package run

import (
	"os"
	"syscall"
)

var (
	handledSignals = []os.Signal{
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGUSR1,
	}

	inputSignalNames = map[string]os.Signal{
		"SIGHUP":  syscall.SIGHUP,
		"SIGINT":  syscall.SIGINT,
		"SIGQUIT": syscall.SIGQUIT,
		"SIGTERM": syscall.SIGTERM,
		"SIGUSR1": syscall.SIGUSR1,
	}
)

func isStackSignal(sig os.Signal) bool {
	return sig == syscall.SIGUSR1
}
