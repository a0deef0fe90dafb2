package config

import (
	"fmt"
	"sync"

	"github.com/tevino/abool"
)

// generation is flipped to false whenever any option value changes.
// Getters hold on to the generation they cached their value from and
// reload once it is no longer valid.
var (
	generation     = abool.NewBool(true)
	generationLock sync.RWMutex
)

func currentGeneration() *abool.AtomicBool {
	generationLock.RLock()
	defer generationLock.RUnlock()

	return generation
}

func invalidateGeneration() {
	generationLock.Lock()
	defer generationLock.Unlock()

	generation.UnSet()
	generation = abool.NewBool(true)
}

// assign validates value for option and stores it in slot. A nil value
// clears the slot. The option must be locked by the caller.
func assign(option *Option, slot **valueCache, value interface{}) error {
	if value == nil {
		*slot = nil
		return nil
	}

	vc, err := validateValue(option, value)
	if err != nil {
		return err
	}
	*slot = vc
	return nil
}

// replaceConfig replaces all user defined values. Options missing from
// values or failing validation fall back to their default.
func replaceConfig(values map[string]interface{}) error {
	var (
		failed   int
		firstErr error
	)

	// Only option values change, so the registry read lock is enough.
	optionsLock.RLock()
	for key, option := range options {
		option.Lock()
		option.activeValue = nil
		err := assign(option, &option.activeValue, values[key])
		option.Unlock()

		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	optionsLock.RUnlock()

	invalidateGeneration()

	switch {
	case failed > 1:
		return fmt.Errorf("%d values failed validation, first: %w", failed, firstErr)
	case failed == 1:
		return firstErr
	default:
		return nil
	}
}

// SetConfigOption sets the user defined value of an option and persists
// the configuration. A nil value resets the option to its default.
func SetConfigOption(key string, value interface{}) error {
	option, err := GetOption(key)
	if err != nil {
		return err
	}

	option.Lock()
	err = assign(option, &option.activeValue, value)
	option.Unlock()
	if err != nil {
		return err
	}

	invalidateGeneration()
	return saveConfig()
}

// SetDefaultConfigOption overrides the default value of an option. The
// override is not persisted, as only user defined values are saved.
func SetDefaultConfigOption(key string, value interface{}) error {
	option, err := GetOption(key)
	if err != nil {
		return err
	}

	option.Lock()
	err = assign(option, &option.activeDefaultValue, value)
	option.Unlock()
	if err != nil {
		return err
	}

	invalidateGeneration()
	return nil
}
