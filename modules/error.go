package modules

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// SeverityPanic marks a ModuleError created from a recovered panic.
const SeverityPanic = "panic"

var errorReportingChannel chan *ModuleError

// ModuleError describes a failure of a module task, together with the
// stack it occurred on.
type ModuleError struct {
	Message string

	ModuleName string
	TaskName   string
	TaskType   string // "worker", "module-control" or custom
	Severity   string

	PanicValue interface{}
	StackTrace string
}

// NewPanicError wraps a recovered panic value of a module task.
func (m *Module) NewPanicError(taskName, taskType string, panicValue interface{}) *ModuleError {
	return &ModuleError{
		Message:    fmt.Sprintf("%s: %s %s panicked: %s", m.Name, taskType, taskName, panicValue),
		ModuleName: m.Name,
		TaskName:   taskName,
		TaskType:   taskType,
		Severity:   SeverityPanic,
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
	}
}

// Error returns the string representation of the error.
func (me *ModuleError) Error() string {
	return me.Message
}

// Report sends the error to the reporting channel, if one is set and it
// has room. Reports are dropped otherwise.
func (me *ModuleError) Report() {
	if errorReportingChannel == nil {
		return
	}
	select {
	case errorReportingChannel <- me:
	default:
	}
}

// IsPanic returns whether err is, or wraps, a recovered panic.
func IsPanic(err error) (bool, *ModuleError) {
	var me *ModuleError
	if errors.As(err, &me) && me.Severity == SeverityPanic {
		return true, me
	}
	return false, nil
}

// SetErrorReportingChannel sets the channel recovered panics are reported
// to. Only the first call has an effect.
func SetErrorReportingChannel(reportingChannel chan *ModuleError) {
	if errorReportingChannel == nil {
		errorReportingChannel = reportingChannel
	}
}

// Recoverf recovers a panic of a module task. The panic is reported and,
// if errp is not nil, stored in it as a *ModuleError.
func Recoverf(m *Module, errp *error, name, taskType string) {
	x := recover()
	if x == nil {
		return
	}

	me := m.NewPanicError(name, taskType, x)
	me.Report()
	if errp != nil {
		*errp = me
	}
}
