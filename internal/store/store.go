// Package store wraps bbolt as the embedded ordered key-value store used to
// persist per-source update state (content hashes, incremental offsets).
// Keys are globally ordered by byte-lexicographic comparison, which the
// bucket cursor guarantees.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tinoosan/contentd/internal/data"
)

const (
	stateBucket = "state"
	fileName    = "state.db"
)

// Store is a durable ordered key-value store rooted at a directory path.
// One handle per content source; handles must not be shared across
// providers.
type Store struct {
	db *bbolt.DB
}

// Open reads and, when createIfMissing is set, initializes a store under
// dir. Parent directories are created recursively. With createIfMissing
// false a missing store is an error.
func Open(dir string, createIfMissing bool) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrFileSystem, err)
	}

	path := filepath.Join(dir, fileName)
	if !createIfMissing {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: no store at %s", data.ErrStorage, dir)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", data.ErrStorage, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init bucket: %v", data.ErrStorage, err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

// Put writes a key-value pair, overwriting any existing value.
func (s *Store) Put(key string, value []byte) error {
	if key == "" {
		return data.ErrEmptyKey
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(stateBucket)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", data.ErrStorage, key, err)
	}
	return nil
}

// Get returns the value stored under key, or data.ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, data.ErrEmptyKey
	}
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(stateBucket)).Get([]byte(key))
		if v == nil {
			return data.ErrNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get %q: %v", data.ErrStorage, key, err)
	}
	return value, nil
}

// Delete removes a key. Deleting a non-existent key is a no-op.
func (s *Store) Delete(key string) error {
	if key == "" {
		return data.ErrEmptyKey
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(stateBucket)).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %q: %v", data.ErrStorage, key, err)
	}
	return nil
}

// DeleteAll clears every entry in a single transaction, so a crash cannot
// leave the store partially cleared.
func (s *Store) DeleteAll() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(stateBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(stateBucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: delete all: %v", data.ErrStorage, err)
	}
	return nil
}

// Last returns the greatest key in byte order together with its value, or
// data.ErrEmptyStore.
func (s *Store) Last() (string, []byte, error) {
	var (
		key   string
		value []byte
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket([]byte(stateBucket)).Cursor().Last()
		if k == nil {
			return data.ErrEmptyStore
		}
		key = string(k)
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if errors.Is(err, data.ErrEmptyStore) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("%w: last: %v", data.ErrStorage, err)
	}
	return key, value, nil
}

// Seek returns all entries with key >= the given key in ascending byte
// order. Seeking from "" scans the whole store. Each call snapshots inside
// one read transaction, so an in-progress iteration never observes a torn
// write.
func (s *Store) Seek(key string) ([]data.Entry, error) {
	var entries []data.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(stateBucket)).Cursor()
		var k, v []byte
		if key == "" {
			k, v = c.First()
		} else {
			k, v = c.Seek([]byte(key))
		}
		for ; k != nil; k, v = c.Next() {
			entries = append(entries, data.Entry{Key: string(k), Value: append([]byte(nil), v...)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: seek %q: %v", data.ErrStorage, key, err)
	}
	return entries, nil
}
