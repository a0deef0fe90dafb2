package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger"

	"github.com/safing/entropool/database/storage"
	"github.com/safing/entropool/log"
)

// Badger database made pluggable for entropool.
type Badger struct {
	name string
	db   *badger.DB
}

func init() {
	_ = storage.Register("badger", NewBadger)
}

// NewBadger opens/creates a badger database.
func NewBadger(name, location string) (storage.Interface, error) {
	opts := badger.DefaultOptions(location)
	opts.Logger = &logger{name: name}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Badger{
		name: name,
		db:   db,
	}, nil
}

// Get returns a stored value.
func (b *Badger) Get(key string) ([]byte, error) {
	var data []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		if item.IsDeletedOrExpired() {
			return storage.ErrNotFound
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Has returns whether a value is stored under the given key.
func (b *Badger) Has(key string) (bool, error) {
	_, err := b.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Put stores a value in the database.
func (b *Badger) Put(key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete deletes a value from the database.
func (b *Badger) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// Query returns a an iterator for all entries with the given key prefix.
func (b *Badger) Query(prefix string) (*storage.Iterator, error) {
	queryIter := storage.NewIterator()

	go b.queryExecutor(queryIter, []byte(prefix))
	return queryIter, nil
}

func (b *Badger) queryExecutor(queryIter *storage.Iterator, prefix []byte) {
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if item.IsDeletedOrExpired() {
				continue
			}

			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			ok, err := queryIter.Push(&storage.Entry{
				Key:   string(item.KeyCopy(nil)),
				Value: data,
			})
			if !ok {
				return err
			}
		}
		return nil
	})
	queryIter.Finish(err)
}

// ReadOnly returns whether the database is read only.
func (b *Badger) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (b *Badger) Maintain(_ context.Context) error {
	_ = b.db.RunValueLogGC(0.7)
	return nil
}

// MaintainThorough runs a thorough maintenance operation on the database.
func (b *Badger) MaintainThorough(ctx context.Context) (err error) {
	for err == nil {
		if ctx.Err() != nil {
			return nil
		}
		err = b.db.RunValueLogGC(0.7)
	}
	return nil
}

// Shutdown shuts down the database.
func (b *Badger) Shutdown() error {
	return b.db.Close()
}

// logger routes badger log output to the entropool logger.
type logger struct {
	name string
}

func (l *logger) Errorf(format string, args ...interface{}) {
	log.Errorf("database/badger/"+l.name+": "+format, args...)
}

func (l *logger) Warningf(format string, args ...interface{}) {
	log.Warningf("database/badger/"+l.name+": "+format, args...)
}

func (l *logger) Infof(format string, args ...interface{}) {
	log.Debugf("database/badger/"+l.name+": "+format, args...)
}

func (l *logger) Debugf(format string, args ...interface{}) {
	log.Tracef("database/badger/"+l.name+": "+format, args...)
}
