package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
)

// EnsureDirectory makes sure that path is a directory with the given
// permissions. A file in its place is replaced. Missing parents are created
// with the same permissions.
func EnsureDirectory(path string, perm os.FileMode) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Create below.
	case err != nil:
		return fmt.Errorf("failed to access %s: %w", path, err)
	case info.IsDir():
		// Windows does not support unix permissions.
		if info.Mode().Perm() == perm || runtime.GOOS == "windows" {
			return nil
		}
		return os.Chmod(path, perm)
	default:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove file %s in place of directory: %w", path, err)
		}
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
