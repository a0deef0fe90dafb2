// Package base initializes the data root and is the first module to start.
package base

import (
	"errors"
	"flag"
	"fmt"

	"github.com/safing/entropool/dataroot"
	"github.com/safing/entropool/modules"
)

// DefaultDataDir is used when no data directory is given.
const DefaultDataDir = "/var/lib/entropool"

var (
	module *modules.Module

	dataDir string
)

func init() {
	module = modules.Register("base", prep, nil, nil)

	flag.StringVar(&dataDir, "data", "", "set data directory")
}

// SetDataDir sets the data directory to use if it was not set by flag.
func SetDataDir(dir string) {
	if dataDir == "" {
		dataDir = dir
	}
}

func prep() error {
	// already initialized by an embedding program or a test
	if dataroot.Root() != nil {
		return nil
	}

	if dataDir == "" {
		dataDir = DefaultDataDir
	}

	err := dataroot.Initialize(dataDir, 0o0755)
	if err != nil && !errors.Is(err, dataroot.ErrAlreadyInitialized) {
		return fmt.Errorf("failed to initialize data root %s: %w", dataDir, err)
	}

	return nil
}
