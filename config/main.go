package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/safing/entropool/dataroot"
	"github.com/safing/entropool/log"
	"github.com/safing/entropool/modules"
)

var (
	module *modules.Module

	importFileFlag string
)

func init() {
	module = modules.Register("config", prep, start, nil, "base")

	flag.StringVar(&importFileFlag, "config", "", "import config values from a json or yaml file on start")
}

func prep() error {
	if dataroot.Root() == nil {
		return errors.New("data root is not set")
	}
	return nil
}

func start() error {
	configFilePath = filepath.Join(dataroot.Root().Path, "config.json")

	err := loadConfig()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if importFileFlag != "" {
		err = LoadFile(importFileFlag)
		if err != nil {
			return fmt.Errorf("failed to import config from %s: %w", importFileFlag, err)
		}
		if err := saveConfig(); err != nil {
			log.Warningf("config: failed to persist imported config: %s", err)
		}
	}

	return nil
}

// SetDataRoot sets the path where the config file is saved. Only used in
// tests and tools that run without the module system.
func SetDataRoot(dir string) {
	configFilePath = filepath.Join(dir, "config.json")
}

// Reload reads the config file again and re-applies the import file, if one
// was given.
func Reload() error {
	err := loadConfig()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if importFileFlag != "" {
		return LoadFile(importFileFlag)
	}
	return nil
}
