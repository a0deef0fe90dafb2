package log

import (
	"fmt"
	"io"
	"os"
	"time"
)

var defaultOutput io.Writer = os.Stdout

func writeLine(line *logLine) {
	fmt.Fprintln(defaultOutput, formatLine(line, true))
}

func startWriter() {
	shutdownWaitGroup.Add(1)
	go writerManager()
}

func writerManager() {
	defer shutdownWaitGroup.Done()

	for {
		err := writer()
		if err == nil {
			return
		}
		fmt.Fprintf(defaultOutput, "%s: log writer failed: %s\n", time.Now().Format("060102 15:04:05.000"), err)
	}
}

func writer() (err error) {
	defer func() {
		// recover from panic
		panicVal := recover()
		if panicVal != nil {
			err = fmt.Errorf("%s", panicVal)
			// write stack to stderr
			fmt.Fprintf(os.Stderr, "===== Error Report =====\n%s\n===== End of Report =====\n", panicVal)
		}
	}()

	for {
		select {
		case <-logsWaiting:
			logsWaitingFlag.UnSet()
		case <-forceEmptyingOfBuffer:
		case <-shutdownSignal:
			finalizeWriting()
			return nil
		}

		// give some time for more lines to arrive
		select {
		case <-time.After(10 * time.Millisecond):
		case <-forceEmptyingOfBuffer:
		case <-shutdownSignal:
			finalizeWriting()
			return nil
		}

	writeLoop:
		for {
			select {
			case line := <-logBuffer:
				writeLine(line)
			default:
				break writeLoop
			}
		}
	}
}

func finalizeWriting() {
	for {
		select {
		case line := <-logBuffer:
			writeLine(line)
		case <-time.After(10 * time.Millisecond):
			writeLine(&logLine{
				msg:       "===== LOGGING STOPPED =====",
				level:     WarningLevel,
				timestamp: time.Now(),
			})
			return
		}
	}
}
