package config

import (
	"errors"
	"fmt"
)

// Errors returned by the config package.
var (
	ErrInvalidData     = errors.New("invalid data")
	ErrUnknownOption   = errors.New("unknown option")
	ErrUnsupportedType = errors.New("type not supported")
)

// InvalidValueError is returned when a value is rejected by an option.
// It matches ErrInvalidData with errors.Is.
type InvalidValueError struct {
	Option string
	Value  interface{}
	Msg    string
}

func newInvalidValueError(option string, value interface{}, msg string) *InvalidValueError {
	return &InvalidValueError{Option: option, Value: value, Msg: msg}
}

func (ive *InvalidValueError) Error() string {
	if ive.Msg == "" {
		return fmt.Sprintf("%s: invalid value %+v", ive.Option, ive.Value)
	}
	return fmt.Sprintf("%s: invalid value %+v: %s", ive.Option, ive.Value, ive.Msg)
}

// Is reports whether target is ErrInvalidData.
func (ive *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidData //nolint:errorlint
}
