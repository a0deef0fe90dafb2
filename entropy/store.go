package entropy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bluele/gcache"

	"github.com/safing/entropool/crypto/hash"
	"github.com/safing/entropool/database/storage"
	"github.com/safing/entropool/formats/dsd"
	"github.com/safing/entropool/log"
)

// Default record size bounds.
const (
	DefaultMinRecordSize = 286
	DefaultMaxRecordSize = 6000000
)

// StoreOptions configures a Store.
type StoreOptions struct {
	MinRecordSize int
	MaxRecordSize int
	Format        dsd.SerializationFormat
	CacheSize     int
}

// Store persists entropy records by their address.
type Store struct {
	db      storage.Interface
	format  dsd.SerializationFormat
	minSize int
	maxSize int
	cache   gcache.Cache

	// commitLock makes check-then-write of records atomic.
	commitLock sync.Mutex
	commits    uint64
}

// NewStore returns a new record store on top of the given storage.
func NewStore(db storage.Interface, opts StoreOptions) *Store {
	if opts.MinRecordSize <= 0 {
		opts.MinRecordSize = DefaultMinRecordSize
	}
	if opts.MaxRecordSize <= 0 {
		opts.MaxRecordSize = DefaultMaxRecordSize
	}
	if opts.Format == dsd.AUTO {
		opts.Format = dsd.JSON
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}

	return &Store{
		db:      db,
		format:  opts.Format,
		minSize: opts.MinRecordSize,
		maxSize: opts.MaxRecordSize,
		cache:   gcache.New(opts.CacheSize).LRU().Build(),
	}
}

// CheckSize checks the given size against the record size bounds.
func (s *Store) CheckSize(size int) error {
	switch {
	case size < s.minSize:
		return &SizeError{Size: size, Bound: s.minSize, Minimum: true}
	case size > s.maxSize:
		return &SizeError{Size: size, Bound: s.maxSize}
	default:
		return nil
	}
}

// Bounds returns the minimum and maximum record size.
func (s *Store) Bounds() (minSize, maxSize int) {
	return s.minSize, s.maxSize
}

// Commit stores the content as a record and returns it. Committing the same
// content again returns the already stored record.
func (s *Store) Commit(content []byte) (*Record, error) {
	records, err := s.CommitMany([][]byte{content})
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// CommitMany stores each content as a record. New records are written in one
// batch if the storage supports it. Nothing is committed if any content is
// out of bounds.
func (s *Store) CommitMany(contents [][]byte) ([]*Record, error) {
	for _, content := range contents {
		if err := s.CheckSize(len(content)); err != nil {
			return nil, err
		}
	}

	s.commitLock.Lock()
	defer s.commitLock.Unlock()

	records := make([]*Record, 0, len(contents))
	var (
		created []*Record
		entries []*storage.Entry
		batched = make(map[string]*Record, len(contents))
	)
	for _, content := range contents {
		r := newRecord(content)
		if same, ok := batched[r.Address]; ok {
			records = append(records, same)
			continue
		}

		existing, err := s.Lookup(r.Address)
		switch {
		case err == nil:
			records = append(records, existing)
			continue
		case errors.Is(err, ErrNotFound):
			// Continue.
		case errors.Is(err, ErrIntegrity):
			log.Warningf("entropy: replacing corrupted record %s: %s", r.Address, err)
		default:
			return nil, err
		}

		data, err := r.marshal(s.format)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize record: %w", err)
		}
		entries = append(entries, &storage.Entry{Key: r.Address, Value: data})
		created = append(created, r)
		batched[r.Address] = r
		records = append(records, r)
	}

	if err := s.putMany(entries); err != nil {
		return nil, fmt.Errorf("failed to store %d record(s): %w", len(entries), err)
	}
	for _, r := range created {
		s.commits++
		recordsCommitted.Inc()
		_ = s.cache.Set(r.Address, r)
		log.Debugf("entropy: committed record %s with %d units", r.Address, r.Size)
	}

	for i, r := range records {
		c := *r
		records[i] = &c
	}
	return records, nil
}

func (s *Store) putMany(entries []*storage.Entry) error {
	batcher, ok := s.db.(storage.Batcher)
	if !ok || len(entries) == 1 {
		for _, e := range entries {
			if err := s.db.Put(e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	}

	batch, errs := batcher.PutMany()
	for _, e := range entries {
		batch <- e
	}
	close(batch)
	return <-errs
}

// Lookup returns the record with the given address. It returns ErrNotFound
// if no such record exists and ErrIntegrity if the stored content does not
// match its address.
func (s *Store) Lookup(address string) (*Record, error) {
	if err := hash.DefaultAlgorithm.CheckAddress(address); err != nil {
		return nil, err
	}

	if cached, err := s.cache.Get(address); err == nil {
		c := *(cached.(*Record)) //nolint:forcetypeassert
		return &c, nil
	}

	data, err := s.db.Get(address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record %s: %w", address, err)
	}

	r, err := unmarshalRecord(address, data)
	if err != nil {
		return nil, err
	}
	if err := r.Verify(); err != nil {
		return nil, err
	}

	_ = s.cache.Set(address, r)
	c := *r
	return &c, nil
}

// Has returns whether a record with the given address exists.
func (s *Store) Has(address string) (bool, error) {
	if s.cache.Has(address) {
		return true, nil
	}
	return s.db.Has(address)
}

// VerifyAll checks the integrity of all stored records and removes the
// corrupted ones. It returns the amount of checked and corrupted records.
func (s *Store) VerifyAll(ctx context.Context) (checked, corrupted int, err error) {
	it, err := s.db.Query("")
	if err != nil {
		return 0, 0, err
	}

	var broken []string
scan:
	for {
		select {
		case <-ctx.Done():
			it.Cancel()
			break scan
		case e, ok := <-it.Next:
			if !ok {
				err = it.Err()
				break scan
			}

			checked++
			r, verifyErr := unmarshalRecord(e.Key, e.Value)
			if verifyErr == nil {
				verifyErr = r.Verify()
			}
			if verifyErr != nil {
				corrupted++
				broken = append(broken, e.Key)
				log.Warningf("entropy: %s", verifyErr)
			}
		}
	}

	// Remove after the scan, backends may lock during queries.
	for _, address := range broken {
		if removeErr := s.removeCorrupted(address); removeErr != nil {
			log.Warningf("entropy: failed to remove corrupted record %s: %s", address, removeErr)
		}
	}
	return checked, corrupted, err
}

// removeCorrupted deletes the record if it is still corrupted. A concurrent
// commit may have repaired it.
func (s *Store) removeCorrupted(address string) error {
	s.commitLock.Lock()
	defer s.commitLock.Unlock()

	s.cache.Remove(address)
	_, err := s.Lookup(address)
	if !errors.Is(err, ErrIntegrity) {
		return nil
	}
	s.cache.Remove(address)
	return s.db.Delete(address)
}

// Commits returns the amount of records written by this store.
func (s *Store) Commits() uint64 {
	s.commitLock.Lock()
	defer s.commitLock.Unlock()

	return s.commits
}

// Maintain runs maintenance on the underlying storage.
func (s *Store) Maintain(ctx context.Context, thorough bool) error {
	if thorough {
		return s.db.MaintainThorough(ctx)
	}
	return s.db.Maintain(ctx)
}

// Shutdown closes the underlying storage.
func (s *Store) Shutdown() error {
	s.cache.Purge()
	return s.db.Shutdown()
}
