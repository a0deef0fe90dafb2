/*
Package fstree provides a dead simple file-based database storage backend.
Every value is stored in its own file, which makes it easy to access stored
records directly, without the database.
*/
package fstree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/safing/entropool/database/storage"
)

const (
	defaultFileMode = os.FileMode(0o0644)
	defaultDirMode  = os.FileMode(0o0755)

	shardLength = 2
)

// FSTree database storage.
type FSTree struct {
	name     string
	basePath string
}

func init() {
	_ = storage.Register("fstree", NewFSTree)
}

// NewFSTree returns a (new) FSTree database.
func NewFSTree(name, location string) (storage.Interface, error) {
	basePath, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("fstree: failed to validate path %s: %w", location, err)
	}

	file, err := os.Stat(basePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = os.MkdirAll(basePath, defaultDirMode)
		if err != nil {
			return nil, fmt.Errorf("fstree: failed to create directory %s: %w", basePath, err)
		}
	case err != nil:
		return nil, fmt.Errorf("fstree: failed to stat path %s: %w", basePath, err)
	case !file.IsDir():
		return nil, fmt.Errorf("fstree: provided database path (%s) is a file", basePath)
	}

	return &FSTree{
		name:     name,
		basePath: basePath,
	}, nil
}

func (fst *FSTree) buildFilePath(key string) (string, error) {
	// check key
	if len(key) < 1 {
		return "", fmt.Errorf("%w: key too short", storage.ErrInvalidKey)
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: key %q may not contain path elements", storage.ErrInvalidKey, key)
	}

	// shard into sub directories
	shard := key
	if len(shard) > shardLength {
		shard = shard[:shardLength]
	}

	// build filepath
	dstPath := filepath.Join(fst.basePath, shard, key) // Join also calls Clean()
	if !strings.HasPrefix(dstPath, fst.basePath) {
		return "", fmt.Errorf("fstree: key integrity check failed, compiled path is %s", dstPath)
	}
	return dstPath, nil
}

// Get returns a stored value.
func (fst *FSTree) Get(key string) ([]byte, error) {
	dstPath, err := fst.buildFilePath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(dstPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("fstree: failed to read file %s: %w", dstPath, err)
	}
	return data, nil
}

// Has returns whether a value is stored under the given key.
func (fst *FSTree) Has(key string) (bool, error) {
	dstPath, err := fst.buildFilePath(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(dstPath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("fstree: failed to stat file %s: %w", dstPath, err)
	}
}

// Put stores a value in the database.
func (fst *FSTree) Put(key string, value []byte) error {
	dstPath, err := fst.buildFilePath(key)
	if err != nil {
		return err
	}

	err = renameio.WriteFile(dstPath, value, defaultFileMode)
	if err != nil {
		// create dir and try again
		err = os.MkdirAll(filepath.Dir(dstPath), defaultDirMode)
		if err != nil {
			return fmt.Errorf("fstree: failed to create directory %s: %w", filepath.Dir(dstPath), err)
		}
		err = renameio.WriteFile(dstPath, value, defaultFileMode)
		if err != nil {
			return fmt.Errorf("fstree: could not write file %s: %w", dstPath, err)
		}
	}

	return nil
}

// Delete deletes a value from the database.
func (fst *FSTree) Delete(key string) error {
	dstPath, err := fst.buildFilePath(key)
	if err != nil {
		return err
	}

	// remove entry
	err = os.Remove(dstPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fstree: could not delete %s: %w", dstPath, err)
	}

	return nil
}

// Query returns a an iterator for all entries with the given key prefix.
func (fst *FSTree) Query(prefix string) (*storage.Iterator, error) {
	if strings.ContainsAny(prefix, `/\`) {
		return nil, fmt.Errorf("%w: prefix %q may not contain path elements", storage.ErrInvalidKey, prefix)
	}

	queryIter := storage.NewIterator()

	go fst.queryExecutor(queryIter, prefix)
	return queryIter, nil
}

func (fst *FSTree) queryExecutor(queryIter *storage.Iterator, prefix string) {
	err := filepath.WalkDir(fst.basePath, func(path string, d fs.DirEntry, err error) error {
		// check for error
		if err != nil {
			return fmt.Errorf("fstree: error in walking fs: %w", err)
		}

		if d.IsDir() {
			if path == fst.basePath {
				return nil
			}
			// skip shards that cannot contain the prefix
			shard := d.Name()
			if !strings.HasPrefix(shard, prefix) && !strings.HasPrefix(prefix, shard) {
				return filepath.SkipDir
			}
			return nil
		}

		key := d.Name()
		if !strings.HasPrefix(key, prefix) || strings.HasPrefix(key, ".") {
			// ignore non-matching and temporary files
			return nil
		}

		// read file
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("fstree: failed to read file %s: %w", path, err)
		}

		ok, err := queryIter.Push(&storage.Entry{
			Key:   key,
			Value: data,
		})
		if !ok {
			if err == nil {
				return filepath.SkipAll
			}
			return err
		}
		return nil
	})

	queryIter.Finish(err)
}

// ReadOnly returns whether the database is read only.
func (fst *FSTree) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (fst *FSTree) Maintain(_ context.Context) error {
	return nil
}

// MaintainThorough runs a thorough maintenance operation on the database.
// It removes empty shard directories.
func (fst *FSTree) MaintainThorough(ctx context.Context) error {
	entries, err := os.ReadDir(fst.basePath)
	if err != nil {
		return fmt.Errorf("fstree: failed to list %s: %w", fst.basePath, err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if !entry.IsDir() {
			continue
		}
		shardPath := filepath.Join(fst.basePath, entry.Name())
		files, err := os.ReadDir(shardPath)
		if err == nil && len(files) == 0 {
			_ = os.Remove(shardPath)
		}
	}
	return nil
}

// Shutdown shuts down the database.
func (fst *FSTree) Shutdown() error {
	return nil
}
