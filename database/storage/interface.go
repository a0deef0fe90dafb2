package storage

import (
	"context"
)

// Entry is a single stored value and its key.
type Entry struct {
	Key   string
	Value []byte
}

// Interface defines the database storage API.
type Interface interface {
	// Primary Interface
	Get(key string) ([]byte, error)
	Has(key string) (bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Query(prefix string) (*Iterator, error)

	// Information and Control
	ReadOnly() bool
	Shutdown() error

	// Mandatory Record Maintenance
	Maintain(ctx context.Context) error
	MaintainThorough(ctx context.Context) error
}

// Batcher defines the database storage API for backends that support batch operations.
type Batcher interface {
	PutMany() (batch chan<- *Entry, errs <-chan error)
}
