// Package storage is the durable key-value layer for kanjidex.
//
// It wraps a Badger database and exposes the two keyed entries the
// application persists: the serialized character store and the raw WaniKani
// credential. Values are opaque bytes; callers own the encoding.
package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Well-known keys.
const (
	KeyKanjiData  = "kanjiData"
	KeyCredential = "wanikaniApiKey"
)

// ErrKeyNotFound is returned when a key has never been written.
var ErrKeyNotFound = errors.New("key not found")

// KV is the minimal byte store the services depend on.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Ensure DB implements KV at compile time.
var _ KV = (*DB)(nil)

// DB wraps a Badger database connection.
type DB struct {
	db   *badger.DB
	path string
}

// Options configures the database connection.
type Options struct {
	// Path is the database directory. Empty uses in-memory mode.
	Path string
	// InMemory forces in-memory mode regardless of Path.
	InMemory bool
}

// Open opens or creates a database.
func Open(opts Options) (*DB, error) {
	var badgerOpts badger.Options
	path := strings.TrimSpace(opts.Path)

	if opts.InMemory || path == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
		path = ""
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		badgerOpts = badger.DefaultOptions(path)
	}
	badgerOpts = badgerOpts.WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the on-disk location, or "" for in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// Get returns a copy of the value stored under key.
func (d *DB) Get(key string) ([]byte, error) {
	var out []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores value under key, replacing any previous value.
func (d *DB) Set(key string, value []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes key. Missing keys are not an error.
func (d *DB) Delete(key string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, badger.ErrKeyNotFound)
}
