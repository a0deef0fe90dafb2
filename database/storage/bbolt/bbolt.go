package bbolt

import (
	"bytes"
	"context"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/safing/entropool/database/storage"
)

var bucketName = []byte{0}

// BBolt database made pluggable for entropool.
type BBolt struct {
	name string
	db   *bbolt.DB
}

func init() {
	_ = storage.Register("bbolt", NewBBolt)
}

// NewBBolt opens/creates a bbolt database.
func NewBBolt(name, location string) (storage.Interface, error) {
	db, err := bbolt.Open(filepath.Join(location, "db.bbolt"), 0o600, nil)
	if err != nil {
		return nil, err
	}

	// Create bucket
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BBolt{
		name: name,
		db:   db,
	}, nil
}

// Get returns a stored value.
func (b *BBolt) Get(key string) ([]byte, error) {
	var duplicate []byte

	err := b.db.View(func(tx *bbolt.Tx) error {
		// get value from db
		value := tx.Bucket(bucketName).Get([]byte(key))
		if value == nil {
			return storage.ErrNotFound
		}

		// copy data, value is only valid during the transaction
		duplicate = make([]byte, len(value))
		copy(duplicate, value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return duplicate, nil
}

// Has returns whether a value is stored under the given key.
func (b *BBolt) Has(key string) (exists bool, err error) {
	err = b.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketName).Get([]byte(key)) != nil
		return nil
	})
	return exists, err
}

// Put stores a value in the database.
func (b *BBolt) Put(key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
}

// PutMany stores many values in the database.
func (b *BBolt) PutMany() (chan<- *storage.Entry, <-chan error) {
	batch := make(chan *storage.Entry, 100)
	errs := make(chan error, 1)

	go func() {
		err := b.db.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket(bucketName)
			for e := range batch {
				if e.Key == "" {
					return storage.ErrInvalidKey
				}
				if txErr := bucket.Put([]byte(e.Key), e.Value); txErr != nil {
					return txErr
				}
			}
			return nil
		})
		// drain the batch in case the transaction failed early
		for range batch {
		}
		errs <- err
	}()

	return batch, errs
}

// Delete deletes a value from the database.
func (b *BBolt) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// Query returns a an iterator for all entries with the given key prefix.
func (b *BBolt) Query(prefix string) (*storage.Iterator, error) {
	queryIter := storage.NewIterator()

	go b.queryExecutor(queryIter, []byte(prefix))
	return queryIter, nil
}

func (b *BBolt) queryExecutor(queryIter *storage.Iterator, prefix []byte) {
	err := b.db.View(func(tx *bbolt.Tx) error {
		// Create a cursor for iteration.
		c := tx.Bucket(bucketName).Cursor()

		// Iterate over items in sorted key order, starting at the prefix.
		// The loop finishes at the end of the cursor when a nil key is returned.
		for key, value := c.Seek(prefix); key != nil; key, value = c.Next() {
			// if we don't match the prefix anymore, exit
			if !bytes.HasPrefix(key, prefix) {
				return nil
			}

			// copy data
			duplicate := make([]byte, len(value))
			copy(duplicate, value)

			ok, err := queryIter.Push(&storage.Entry{
				Key:   string(key),
				Value: duplicate,
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
func (b *BBolt) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (b *BBolt) Maintain(_ context.Context) error {
	return nil
}

// MaintainThorough runs a thorough maintenance operation on the database.
func (b *BBolt) MaintainThorough(_ context.Context) error {
	return b.db.Sync()
}

// Shutdown shuts down the database.
func (b *BBolt) Shutdown() error {
	return b.db.Close()
}
