package storage

import (
	"sync"
	"time"

	"github.com/tevino/abool"
)

// Iterator defines the iterator structure.
type Iterator struct {
	Next chan *Entry
	Done chan struct{}

	errLock    sync.Mutex
	err        error
	doneClosed *abool.AtomicBool
}

// NewIterator creates a new Iterator.
func NewIterator() *Iterator {
	return &Iterator{
		Next:       make(chan *Entry, 10),
		Done:       make(chan struct{}),
		doneClosed: abool.NewBool(false),
	}
}

// Push sends an entry to the consumer. It returns false if the iterator was
// cancelled and an error if the consumer did not read within a second.
func (it *Iterator) Push(e *Entry) (ok bool, err error) {
	select {
	case <-it.Done:
		return false, nil
	case it.Next <- e:
		return true, nil
	default:
		select {
		case <-it.Done:
			return false, nil
		case it.Next <- e:
			return true, nil
		case <-time.After(1 * time.Second):
			return false, ErrQueryTimeout
		}
	}
}

// Finish is called be the storage to signal the end of the query results.
func (it *Iterator) Finish(err error) {
	it.errLock.Lock()
	it.err = err
	it.errLock.Unlock()

	close(it.Next)
	if it.doneClosed.SetToIf(false, true) {
		close(it.Done)
	}
}

// Cancel is called by the iteration consumer to cancel the running query.
func (it *Iterator) Cancel() {
	if it.doneClosed.SetToIf(false, true) {
		close(it.Done)
	}
}

// Err returns the iterator error, if exists.
func (it *Iterator) Err() error {
	it.errLock.Lock()
	defer it.errLock.Unlock()
	return it.err
}
