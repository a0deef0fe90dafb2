package config

import "sync"

type safe struct{}

// Concurrent provides getters that may be shared between goroutines. The
// plain getters cache state in their closure and must not be.
var Concurrent = &safe{}

func guard[T any](fn func() T) func() T {
	var lock sync.Mutex
	return func() T {
		lock.Lock()
		defer lock.Unlock()
		return fn()
	}
}

// GetAsString returns a concurrency safe getter for a string option.
func (cs *safe) GetAsString(name string, fallback string) StringOption {
	return guard(GetAsString(name, fallback))
}

// GetAsStringArray returns a concurrency safe getter for a string array option.
func (cs *safe) GetAsStringArray(name string, fallback []string) StringArrayOption {
	return guard(GetAsStringArray(name, fallback))
}

// GetAsInt returns a concurrency safe getter for an int option.
func (cs *safe) GetAsInt(name string, fallback int64) IntOption {
	return guard(GetAsInt(name, fallback))
}

// GetAsBool returns a concurrency safe getter for a bool option.
func (cs *safe) GetAsBool(name string, fallback bool) BoolOption {
	return guard(GetAsBool(name, fallback))
}
