// Package bolt implements store.Store on top of bbolt (embedded B+ tree).
package bolt

import (
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"celebi/internal/record"
	"celebi/pkg/store"
)

var (
	scalarBucket = []byte("string")
	setBucket    = []byte("string_set")
)

// Store keeps scalars and sets in two bbolt buckets of a single file.
// Set values are stored with the binary record encoding.
type Store struct {
	db        *bolt.DB
	closeOnce sync.Once
	closeErr  error
}

var _ store.Store = (*Store)(nil)

// Open creates or opens a bbolt database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	return &Store{db: db}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

func (s *Store) SetScalar(key, value string) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	return s.put(scalarBucket, key, []byte(value))
}

func (s *Store) SetSet(key string, value store.StringSet) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	return s.put(setBucket, key, record.EncodeBinarySet(value))
}

// AppendToSet reads, extends and writes the set inside one write
// transaction.
func (s *Store) AppendToSet(key, value string) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(setBucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		members, err := record.DecodeBinarySet(b.Get([]byte(key)))
		if err != nil {
			return fmt.Errorf("reading set %q: %w", key, err)
		}
		if !members.Add(value) {
			return nil
		}
		return b.Put([]byte(key), record.EncodeBinarySet(members))
	})
}

func (s *Store) GetScalar(key string) (string, error) {
	var val string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(scalarBucket)
		if b == nil {
			return nil
		}
		// string() copies; the slice is only valid inside the transaction.
		val = string(b.Get([]byte(key)))
		return nil
	})
	return val, err
}

func (s *Store) GetSet(key string) (store.StringSet, error) {
	members := store.NewStringSet()
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(setBucket)
		if b == nil {
			return nil
		}
		decoded, err := record.DecodeBinarySet(b.Get([]byte(key)))
		if err != nil {
			return fmt.Errorf("reading set %q: %w", key, err)
		}
		members = decoded
		return nil
	})
	return members, err
}

func (s *Store) LoadAllInto(fn func(key, value string) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(scalarBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), string(v))
		})
	})
}

// Clear drops both buckets. The database file itself stays in place.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{scalarBucket, setBucket} {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("deleting bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close releases the database file. Repeated calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *Store) put(bucket []byte, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return b.Put([]byte(key), value)
	})
}
