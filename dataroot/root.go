// Package dataroot holds the directory all persistent data is stored in.
package dataroot

import (
	"errors"
	"os"
	"sync"

	"github.com/safing/entropool/utils"
)

// Errors.
var (
	ErrAlreadyInitialized = errors.New("data root is already initialized")
	ErrNotInitialized     = errors.New("data root is not initialized")
)

var (
	root     *utils.DirStructure
	rootLock sync.RWMutex
)

// Initialize sets and creates the data root directory. It may only be
// called once.
func Initialize(rootDir string, perm os.FileMode) error {
	rootLock.Lock()
	defer rootLock.Unlock()

	if root != nil {
		return ErrAlreadyInitialized
	}

	ds := utils.NewDirStructure(rootDir, perm)
	if err := ds.Ensure(); err != nil {
		return err
	}
	root = ds
	return nil
}

// Root returns the data root directory, or nil if it is not initialized.
func Root() *utils.DirStructure {
	rootLock.RLock()
	defer rootLock.RUnlock()

	return root
}
