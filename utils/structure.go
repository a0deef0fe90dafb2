package utils

import (
	"os"
	"path/filepath"
	"sync"
)

// DirStructure is a tree of directories with enforced permissions.
type DirStructure struct {
	lock sync.Mutex

	Path   string
	Perm   os.FileMode
	Parent *DirStructure

	children map[string]*DirStructure
}

// NewDirStructure returns a new root directory.
func NewDirStructure(path string, perm os.FileMode) *DirStructure {
	return &DirStructure{
		Path:     path,
		Perm:     perm,
		children: make(map[string]*DirStructure),
	}
}

// ChildDir returns the child directory with the given name. An existing
// child gets its permissions updated.
func (ds *DirStructure) ChildDir(name string, perm os.FileMode) *DirStructure {
	ds.lock.Lock()
	defer ds.lock.Unlock()

	if child, ok := ds.children[name]; ok {
		child.Perm = perm
		return child
	}

	child := &DirStructure{
		Path:     filepath.Join(ds.Path, name),
		Perm:     perm,
		Parent:   ds,
		children: make(map[string]*DirStructure),
	}
	ds.children[name] = child
	return child
}

// Ensure creates the directory and all its parents, fixing permissions on
// the way.
func (ds *DirStructure) Ensure() error {
	if ds.Parent != nil {
		if err := ds.Parent.Ensure(); err != nil {
			return err
		}
	}

	ds.lock.Lock()
	defer ds.lock.Unlock()

	return EnsureDirectory(ds.Path, ds.Perm)
}
