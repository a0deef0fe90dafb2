package qrng

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// UnitType is the type of entropy unit requested from the service.
type UnitType string

// Unit Types.
const (
	UnitByte UnitType = "uint8"
	UnitHex  UnitType = "hex16"
)

func checkPayload(body []byte, unitType UnitType, requested int) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json payload", ErrSourceUnavailable)
	}
	payload := gjson.ParseBytes(body)

	if success := payload.Get("success"); !success.Exists() || !success.Bool() {
		return gjson.Result{}, fmt.Errorf("%w: service reported failure", ErrSourceUnavailable)
	}
	if t := payload.Get("type").String(); t != "" && t != string(unitType) {
		return gjson.Result{}, fmt.Errorf("%w: expected type %s, got %s", ErrSourceUnavailable, unitType, t)
	}

	length := payload.Get("length")
	if length.Type != gjson.Number || int(length.Int()) != requested {
		return gjson.Result{}, fmt.Errorf("%w: requested %d units, service declared %s", ErrSourceUnavailable, requested, length.Raw)
	}

	data := payload.Get("data")
	if !data.IsArray() {
		return gjson.Result{}, fmt.Errorf("%w: missing data array", ErrSourceUnavailable)
	}
	if cnt := data.Get("#").Int(); int(cnt) != requested {
		return gjson.Result{}, fmt.Errorf("%w: declared %d units, got %d", ErrSourceUnavailable, requested, cnt)
	}

	return data, nil
}

// ParseBytes extracts exactly requested byte units from a service payload.
func ParseBytes(body []byte, requested int) ([]byte, error) {
	data, err := checkPayload(body, UnitByte, requested)
	if err != nil {
		return nil, err
	}

	units := make([]byte, 0, requested)
	data.ForEach(func(_, value gjson.Result) bool {
		if value.Type != gjson.Number {
			err = fmt.Errorf("%w: unit %s is not a number", ErrSourceUnavailable, value.Raw)
			return false
		}
		n := value.Float()
		if n < 0 || n > 255 || n != float64(int(n)) {
			err = fmt.Errorf("%w: unit %s out of range", ErrSourceUnavailable, value.Raw)
			return false
		}
		units = append(units, byte(n))
		return true
	})
	if err != nil {
		return nil, err
	}

	return units, nil
}

// ParseHex extracts exactly requested hex units from a service payload.
// Every unit is a lowercase two character hex string.
func ParseHex(body []byte, requested int) ([]string, error) {
	data, err := checkPayload(body, UnitHex, requested)
	if err != nil {
		return nil, err
	}

	units := make([]string, 0, requested)
	data.ForEach(func(_, value gjson.Result) bool {
		if value.Type != gjson.String || !isHexPair(value.Str) {
			err = fmt.Errorf("%w: unit %s is not a hex pair", ErrSourceUnavailable, value.Raw)
			return false
		}
		units = append(units, strings.ToLower(value.Str))
		return true
	})
	if err != nil {
		return nil, err
	}

	return units, nil
}

func isHexPair(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
