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
	}

	inputSignalNames = map[string]os.Signal{
		"SIGHUP":  syscall.SIGHUP,
		"SIGINT":  syscall.SIGINT,
		"SIGQUIT": syscall.SIGQUIT,
		"SIGTERM": syscall.SIGTERM,
	}
)

func isStackSignal(_ os.Signal) bool {
	return false
}
