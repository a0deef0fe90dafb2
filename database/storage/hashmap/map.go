// Package hashmap provides an in-memory storage backend ordered by key.
package hashmap

import (
	"context"
	"sync"

	"github.com/armon/go-radix"

	"github.com/safing/entropool/database/storage"
)

// HashMap storage.
type HashMap struct {
	name   string
	db     *radix.Tree
	dbLock sync.RWMutex
}

func init() {
	_ = storage.Register("hashmap", NewHashMap)
}

// NewHashMap creates a hashmap database.
func NewHashMap(name, location string) (storage.Interface, error) {
	return &HashMap{
		name: name,
		db:   radix.New(),
	}, nil
}

// Get returns a stored value.
func (hm *HashMap) Get(key string) ([]byte, error) {
	hm.dbLock.RLock()
	defer hm.dbLock.RUnlock()

	v, ok := hm.db.Get(key)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyBytes(v.([]byte)), nil //nolint:forcetypeassert
}

// Has returns whether a value is stored under the given key.
func (hm *HashMap) Has(key string) (bool, error) {
	hm.dbLock.RLock()
	defer hm.dbLock.RUnlock()

	_, ok := hm.db.Get(key)
	return ok, nil
}

// Put stores a value in the database.
func (hm *HashMap) Put(key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	hm.dbLock.Lock()
	defer hm.dbLock.Unlock()

	hm.db.Insert(key, copyBytes(value))
	return nil
}

// PutMany stores many values in the database.
func (hm *HashMap) PutMany() (chan<- *storage.Entry, <-chan error) {
	batch := make(chan *storage.Entry, 100)
	errs := make(chan error, 1)

	// start handler
	go func() {
		// we could lock for every entry, but we want to have the same behaviour
		// as the other storage backends, especially for testing.
		hm.dbLock.Lock()
		defer hm.dbLock.Unlock()

		var err error
		for e := range batch {
			if e.Key == "" {
				err = storage.ErrInvalidKey
				continue
			}
			if err == nil {
				hm.db.Insert(e.Key, copyBytes(e.Value))
			}
		}
		errs <- err
	}()

	return batch, errs
}

// Delete deletes a value from the database.
func (hm *HashMap) Delete(key string) error {
	hm.dbLock.Lock()
	defer hm.dbLock.Unlock()

	hm.db.Delete(key)
	return nil
}

// Query returns a an iterator for all entries with the given key prefix.
func (hm *HashMap) Query(prefix string) (*storage.Iterator, error) {
	queryIter := storage.NewIterator()

	go hm.queryExecutor(queryIter, prefix)
	return queryIter, nil
}

func (hm *HashMap) queryExecutor(queryIter *storage.Iterator, prefix string) {
	// collect first, so that the lock is not held while the consumer reads
	hm.dbLock.RLock()
	var entries []*storage.Entry
	hm.db.WalkPrefix(prefix, func(key string, v interface{}) bool {
		entries = append(entries, &storage.Entry{
			Key:   key,
			Value: copyBytes(v.([]byte)), //nolint:forcetypeassert
		})
		return false
	})
	hm.dbLock.RUnlock()

	var err error
	for _, e := range entries {
		var ok bool
		ok, err = queryIter.Push(e)
		if !ok {
			break
		}
	}

	queryIter.Finish(err)
}

// ReadOnly returns whether the database is read only.
func (hm *HashMap) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (hm *HashMap) Maintain(_ context.Context) error {
	return nil
}

// MaintainThorough runs a thorough maintenance operation on the database.
func (hm *HashMap) MaintainThorough(_ context.Context) error {
	return nil
}

// Shutdown shuts down the database.
func (hm *HashMap) Shutdown() error {
	return nil
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
