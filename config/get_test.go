package config

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetOptions() {
	optionsLock.Lock()
	options = make(map[string]*Option)
	optionsLock.Unlock()
	configFilePath = ""
	invalidateGeneration()
}

func registerTestOptions(t *testing.T) {
	t.Helper()

	require.NoError(t, Register(&Option{
		Name:            "Fetch Attempts",
		Key:             "entropy/fetch_attempts",
		Description:     "How often to try fetching entropy.",
		OptType:         OptTypeInt,
		DefaultValue:    5,
		ValidationRegex: `^[1-9][0-9]*$`,
	}))
	require.NoError(t, Register(&Option{
		Name:            "Storage Type",
		Key:             "entropy/storage_type",
		Description:     "Storage backend for entropy records.",
		OptType:         OptTypeString,
		DefaultValue:    "bbolt",
		ValidationRegex: `^(bbolt|badger|fstree|hashmap|sqlite)$`,
	}))
	require.NoError(t, Register(&Option{
		Name:         "Remote Hex",
		Key:          "sampling/remote_hex",
		Description:  "Use the remote hex source.",
		OptType:      OptTypeBool,
		DefaultValue: true,
	}))
	require.NoError(t, Register(&Option{
		Name:         "Mirrors",
		Key:          "entropy/mirrors",
		Description:  "Mirror URLs.",
		OptType:      OptTypeStringArray,
		DefaultValue: []string{"a", "b"},
	}))
}

func TestGet(t *testing.T) { //nolint:paralleltest // Modifies global config.
	resetOptions()
	registerTestOptions(t)

	attempts := GetAsInt("entropy/fetch_attempts", -1)
	storageType := GetAsString("entropy/storage_type", "none")
	remoteHex := GetAsBool("sampling/remote_hex", false)
	mirrors := GetAsStringArray("entropy/mirrors", nil)

	assert.Equal(t, int64(5), attempts())
	assert.Equal(t, "bbolt", storageType())
	assert.True(t, remoteHex())
	assert.Equal(t, []string{"a", "b"}, mirrors())

	// user values take precedence and invalidate the cached values
	require.NoError(t, SetConfigOption("entropy/fetch_attempts", 3))
	require.NoError(t, SetConfigOption("entropy/storage_type", "badger"))
	require.NoError(t, SetConfigOption("sampling/remote_hex", false))
	assert.Equal(t, int64(3), attempts())
	assert.Equal(t, "badger", storageType())
	assert.False(t, remoteHex())

	// default overrides sit below user values
	require.NoError(t, SetDefaultConfigOption("entropy/fetch_attempts", 7))
	assert.Equal(t, int64(3), attempts())
	require.NoError(t, SetConfigOption("entropy/fetch_attempts", nil))
	assert.Equal(t, int64(7), attempts())

	// wrong type requests return the fallback
	assert.Equal(t, int64(-1), GetAsInt("entropy/storage_type", -1)())
	// unknown options return the fallback
	assert.Equal(t, "none", GetAsString("entropy/unknown", "none")())
}

func TestValidation(t *testing.T) { //nolint:paralleltest // Modifies global config.
	resetOptions()
	registerTestOptions(t)

	err := SetConfigOption("entropy/fetch_attempts", 0)
	var ive *InvalidValueError
	require.True(t, errors.As(err, &ive), "expected InvalidValueError, got %v", err)
	assert.Equal(t, "entropy/fetch_attempts", ive.Option)
	assert.ErrorIs(t, err, ErrInvalidData)

	assert.Error(t, SetConfigOption("entropy/storage_type", "floppy"))
	assert.Error(t, SetConfigOption("entropy/storage_type", 1))
	assert.Error(t, SetConfigOption("entropy/fetch_attempts", 1.5))
	assert.NoError(t, SetConfigOption("entropy/fetch_attempts", 2.0))
	assert.ErrorIs(t, SetConfigOption("entropy/nope", 1), ErrUnknownOption)
	assert.ErrorIs(t, SetDefaultConfigOption("entropy/nope", 1), ErrUnknownOption)

	// invalid defaults are rejected at registration
	err = Register(&Option{
		Name:            "Broken",
		Key:             "entropy/broken",
		Description:     "Broken default.",
		OptType:         OptTypeInt,
		DefaultValue:    "five",
		ValidationRegex: `^[0-9]+$`,
	})
	assert.Error(t, err)
}

func TestPersistence(t *testing.T) { //nolint:paralleltest // Modifies global config.
	resetOptions()
	registerTestOptions(t)
	dir := t.TempDir()
	SetDataRoot(dir)
	defer func() {
		configFilePath = ""
	}()

	require.NoError(t, SetConfigOption("entropy/fetch_attempts", 9))
	require.FileExists(t, filepath.Join(dir, "config.json"))

	// reset value in memory and reload from disk
	resetOptions()
	registerTestOptions(t)
	SetDataRoot(dir)
	require.NoError(t, loadConfig())
	assert.Equal(t, int64(9), GetAsInt("entropy/fetch_attempts", 0)())
}

func TestExport(t *testing.T) { //nolint:paralleltest // Modifies global config.
	resetOptions()
	registerTestOptions(t)
	require.NoError(t, SetConfigOption("entropy/storage_type", "fstree"))

	exports, err := ExportOptions()
	require.NoError(t, err)
	require.Len(t, exports, 4)
	assert.Equal(t, "entropy/fetch_attempts", exports[0].Key)
	assert.Equal(t, "int", exports[0].OptType)

	var storage *OptionExport
	for _, export := range exports {
		if export.Key == "entropy/storage_type" {
			storage = export
		}
	}
	require.NotNil(t, storage)
	assert.Equal(t, "fstree", storage.Value)
	assert.Equal(t, "bbolt", storage.DefaultValue)

	// exported values are copies
	mirrors := exports[1].DefaultValue.([]string)
	mirrors[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, GetAsStringArray("entropy/mirrors", nil)())
}

func TestConcurrentGet(t *testing.T) { //nolint:paralleltest // Modifies global config.
	resetOptions()
	registerTestOptions(t)

	attempts := Concurrent.GetAsInt("entropy/fetch_attempts", -1)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = attempts()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(5), attempts())
}
