package config

import (
	"fmt"
	"math"
)

// valueCache holds a validated value in its typed slot.
type valueCache struct {
	stringVal      string
	stringArrayVal []string
	intVal         int64
	boolVal        bool
}

func (vc *valueCache) getData(opt *Option) interface{} {
	switch opt.OptType {
	case OptTypeBool:
		return vc.boolVal
	case OptTypeInt:
		return vc.intVal
	case OptTypeString:
		return vc.stringVal
	case OptTypeStringArray:
		return vc.stringArrayVal
	default:
		return nil
	}
}

func validateValue(option *Option, value interface{}) (*valueCache, error) {
	vc, err := validateValueType(option, value)
	if err != nil {
		return nil, err
	}

	if option.ValidationFunc != nil {
		if err := option.ValidationFunc(vc.getData(option)); err != nil {
			return nil, newInvalidValueError(option.Key, value, err.Error())
		}
	}
	return vc, nil
}

func validateValueType(option *Option, value interface{}) (*valueCache, error) {
	wrongType := func(expected string) error {
		return newInvalidValueError(option.Key, fmt.Sprintf("%T", value), "expected type "+expected)
	}
	matches := func(s string) bool {
		return option.compiledRegex == nil || option.compiledRegex.MatchString(s)
	}

	switch v := value.(type) {
	case bool:
		if option.OptType != OptTypeBool {
			return nil, wrongType("bool")
		}
		return &valueCache{boolVal: v}, nil

	case string:
		if option.OptType != OptTypeString {
			return nil, wrongType("string")
		}
		if !matches(v) {
			return nil, newInvalidValueError(option.Key, v, "validation regex failed")
		}
		return &valueCache{stringVal: v}, nil

	case []interface{}:
		// Decoded JSON arrays arrive untyped.
		strs := make([]string, len(v))
		for i, entry := range v {
			s, ok := entry.(string)
			if !ok {
				return nil, newInvalidValueError(option.Key, fmt.Sprintf("element %+v at index %d", entry, i), "not a string")
			}
			strs[i] = s
		}
		return validateValueType(option, strs)

	case []string:
		if option.OptType != OptTypeStringArray {
			return nil, wrongType("[]string")
		}
		for i, entry := range v {
			if !matches(entry) {
				return nil, newInvalidValueError(option.Key, fmt.Sprintf("element %s at index %d", entry, i), "validation regex failed")
			}
		}
		return &valueCache{stringArrayVal: v}, nil
	}

	n, ok, err := toInt64(value)
	switch {
	case !ok:
		return nil, newInvalidValueError(option.Key, fmt.Sprintf("%T", value), "invalid value")
	case option.OptType != OptTypeInt:
		return nil, wrongType("int")
	case err != nil:
		return nil, newInvalidValueError(option.Key, value, err.Error())
	case !matches(fmt.Sprintf("%v", value)):
		return nil, newInvalidValueError(option.Key, value, "validation regex failed")
	}
	return &valueCache{intVal: n}, nil
}

// toInt64 converts numeric values to int64. ok is false for non-numeric
// types. uint64 is not supported, as it does not fit. Floats are accepted
// only without a fractional part.
func toInt64(value interface{}) (n int64, ok bool, err error) {
	switch v := value.(type) {
	case int:
		return int64(v), true, nil
	case int8:
		return int64(v), true, nil
	case int16:
		return int64(v), true, nil
	case int32:
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case uint:
		return int64(v), true, nil
	case uint8:
		return int64(v), true, nil
	case uint16:
		return int64(v), true, nil
	case uint32:
		return int64(v), true, nil
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	default:
		return 0, false, nil
	}
}

func floatToInt64(f float64) (int64, bool, error) {
	if math.Remainder(f, 1) != 0 {
		return 0, true, fmt.Errorf("%v has a fractional part", f)
	}
	return int64(f), true, nil
}
