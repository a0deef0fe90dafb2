package log

import (
	"fmt"
	"sync"
)

const (
	rightArrow = "▶"
	maxCount   = 999
)

var (
	counter     uint16
	counterLock sync.Mutex
)

const (
	colorRed     = "\033[31m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorEnd     = "\033[0m"
)

func (s Severity) String() string {
	switch s {
	case TraceLevel:
		return "TRAC"
	case DebugLevel:
		return "DEBU"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARN"
	case ErrorLevel:
		return "ERRO"
	case CriticalLevel:
		return "CRIT"
	default:
		return "NONE"
	}
}

func (s Severity) color() string {
	switch s {
	case DebugLevel:
		return colorCyan
	case InfoLevel:
		return colorBlue
	case WarningLevel:
		return colorYellow
	case ErrorLevel:
		return colorRed
	case CriticalLevel:
		return colorMagenta
	default:
		return ""
	}
}

func formatLine(line *logLine, useColor bool) string {
	var colorStart, colorStop string
	if useColor {
		colorStart = line.level.color()
		if colorStart != "" {
			colorStop = colorEnd
		}
	}

	counterLock.Lock()
	counter++
	count := counter
	if counter >= maxCount {
		counter = 0
	}
	counterLock.Unlock()

	if line.line == 0 {
		return fmt.Sprintf(
			"%s%s ? %s %s %03d%s %s",
			colorStart, line.timestamp.Format("060102 15:04:05.000"),
			rightArrow, line.level, count, colorStop, line.msg,
		)
	}

	fPartStart := len(line.file) - 10
	if fPartStart < 0 {
		fPartStart = 0
	}
	return fmt.Sprintf(
		"%s%s %s:%03d %s %s %03d%s %s",
		colorStart, line.timestamp.Format("060102 15:04:05.000"),
		line.file[fPartStart:], line.line,
		rightArrow, line.level, count, colorStop, line.msg,
	)
}
