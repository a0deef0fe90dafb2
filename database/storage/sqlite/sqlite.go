// Package sqlite provides a SQLite storage backend with one row per key.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite" // register driver

	"github.com/safing/entropool/database/storage"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	key   TEXT PRIMARY KEY NOT NULL,
	value BLOB NOT NULL
) WITHOUT ROWID;`

// SQLite database made pluggable for entropool.
type SQLite struct {
	name  string
	sqlDB *sql.DB
}

func init() {
	_ = storage.Register("sqlite", NewSQLite)
}

// NewSQLite opens/creates a sqlite database.
func NewSQLite(name, location string) (storage.Interface, error) {
	dsn := filepath.Join(filepath.Clean(location), "db.sqlite") +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{
		name:  name,
		sqlDB: sqlDB,
	}, nil
}

// Get returns a stored value.
func (s *SQLite) Get(key string) ([]byte, error) {
	var value []byte
	err := s.sqlDB.QueryRow(`SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, storage.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return value, nil
}

// Has returns whether a value is stored under the given key.
func (s *SQLite) Has(key string) (bool, error) {
	var exists int
	err := s.sqlDB.QueryRow(`SELECT COUNT(1) FROM entries WHERE key = ?`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check entry: %w", err)
	}
	return exists > 0, nil
}

// Put stores a value in the database.
func (s *SQLite) Put(key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.sqlDB.Exec(`INSERT INTO entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

// PutMany stores many values in the database within one transaction.
func (s *SQLite) PutMany() (chan<- *storage.Entry, <-chan error) {
	batch := make(chan *storage.Entry, 100)
	errs := make(chan error, 1)

	go func() {
		errs <- s.putMany(batch)
	}()

	return batch, errs
}

func (s *SQLite) putMany(batch <-chan *storage.Entry) (err error) {
	defer func() {
		// drain the batch in case the transaction failed early
		for range batch {
		}
	}()

	tx, err := s.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`INSERT INTO entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for e := range batch {
		if e.Key == "" {
			return storage.ErrInvalidKey
		}
		value := e.Value
		if value == nil {
			value = []byte{}
		}
		if _, err = stmt.Exec(e.Key, value); err != nil {
			return fmt.Errorf("put entry: %w", err)
		}
	}

	return tx.Commit()
}

// Delete deletes a value from the database.
func (s *SQLite) Delete(key string) error {
	_, err := s.sqlDB.Exec(`DELETE FROM entries WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Query returns a an iterator for all entries with the given key prefix.
func (s *SQLite) Query(prefix string) (*storage.Iterator, error) {
	rows, err := s.sqlDB.Query(
		`SELECT key, value FROM entries WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}

	queryIter := storage.NewIterator()

	go s.queryExecutor(queryIter, rows)
	return queryIter, nil
}

func (s *SQLite) queryExecutor(queryIter *storage.Iterator, rows *sql.Rows) {
	defer func() {
		_ = rows.Close()
	}()

	var err error
	for rows.Next() {
		e := &storage.Entry{}
		if err = rows.Scan(&e.Key, &e.Value); err != nil {
			break
		}

		var ok bool
		ok, err = queryIter.Push(e)
		if !ok {
			break
		}
	}
	if err == nil {
		err = rows.Err()
	}

	queryIter.Finish(err)
}

// ReadOnly returns whether the database is read only.
func (s *SQLite) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (s *SQLite) Maintain(ctx context.Context) error {
	_, err := s.sqlDB.ExecContext(ctx, `PRAGMA optimize`)
	return err
}

// MaintainThorough runs a thorough maintenance operation on the database.
func (s *SQLite) MaintainThorough(ctx context.Context) error {
	_, err := s.sqlDB.ExecContext(ctx, `VACUUM`)
	return err
}

// Shutdown shuts down the database.
func (s *SQLite) Shutdown() error {
	return s.sqlDB.Close()
}
