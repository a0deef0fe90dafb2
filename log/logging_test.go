package log

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func init() {
	err := Start()
	if err != nil {
		panic("start failed: " + err.Error())
	}
}

func TestLogging(t *testing.T) { //nolint:paralleltest
	// skip
	if testing.Short() {
		t.Skip()
	}

	// set levels
	SetLogLevel(WarningLevel)
	SetLogLevel(InfoLevel)
	SetLogLevel(ErrorLevel)
	SetLogLevel(DebugLevel)
	SetLogLevel(CriticalLevel)
	SetLogLevel(TraceLevel)

	// log
	Trace("Trace")
	Debug("Debug")
	Info("Info")
	Warning("Warning")
	Error("Error")
	Critical("Critical")

	// logf
	Tracef("Trace %s", "f")
	Debugf("Debug %s", "f")
	Infof("Info %s", "f")
	Warningf("Warning %s", "f")
	Errorf("Error %s", "f")
	Criticalf("Critical %s", "f")

	// play with levels
	SetLogLevel(CriticalLevel)
	Warning("Warning")
	SetLogLevel(TraceLevel)

	// log invalid level
	log(0xFF, "msg")

	// wait logs to be written
	time.Sleep(20 * time.Millisecond)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TraceLevel, ParseLevel("trace"))
	assert.Equal(t, WarningLevel, ParseLevel("WARNING"))
	assert.Equal(t, Severity(0), ParseLevel("loud"))
}

func TestFormatLine(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.UTC)
	formatted := formatLine(&logLine{
		msg:       "entropy: pool flushed",
		level:     InfoLevel,
		timestamp: ts,
		file:      "/src/entropool/entropy/pool",
		line:      42,
	}, false)
	assert.True(t, strings.HasPrefix(formatted, "260102 03:04:05.006 tropy/pool:042 ▶ INFO "), formatted)
	assert.True(t, strings.HasSuffix(formatted, "entropy: pool flushed"), formatted)

	// no color escape codes without color
	assert.False(t, bytes.ContainsRune([]byte(formatted), '\033'))
}
