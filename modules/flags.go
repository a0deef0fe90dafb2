package modules

import "flag"

// HelpFlag triggers printing flag.Usage. It's exported for custom help handling.
var HelpFlag bool

var cmdLineOperation func() error

func init() {
	flag.BoolVar(&HelpFlag, "help", false, "print help")
}

// SetCmdLineOperation sets a command line operation to be executed instead of starting the system. This is useful when functions need all modules to be prepared for a special operation.
func SetCmdLineOperation(fn func() error) {
	cmdLineOperation = fn
}

func runCmdLineOperation() error {
	err := cmdLineOperation()
	if err != nil {
		SetExitStatusCode(1)
		return err
	}
	return ErrCleanExit
}

func parseFlags() error {
	// parse flags
	if !flag.Parsed() {
		flag.Parse()
	}

	if HelpFlag {
		flag.Usage()
		return ErrCleanExit
	}

	return nil
}
