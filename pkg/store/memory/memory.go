// Package memory implements an in-process store.Store that can act as a
// write-through cache over another Store.
package memory

import (
	"fmt"
	"sync"

	"celebi/internal/logging"
	"celebi/pkg/store"
)

var logger = logging.For("memstore")

// Store keeps scalars and sets in two maps. When a backing Store is present,
// every mutation is applied to the maps first and then forwarded; the call
// returns only after both layers have been written.
//
// Scalar reads are served from memory only. Set reads fall back to the
// backing Store on a miss. Use Preload to warm the scalar map from the
// backing Store.
//
// Mutations are serialised across both layers, so concurrent writers leave
// the maps and the backing Store in agreement. Readers only wait for the
// in-memory update, never for backing I/O.
type Store struct {
	// wmu is held by every mutation until the backing Store has been written.
	wmu sync.Mutex

	mu      sync.RWMutex
	scalars map[string]string
	sets    map[string]store.StringSet
	backing store.Store // nil when the store is purely in-memory
}

var _ store.Store = (*Store)(nil)

// New creates a Store. backing may be nil; otherwise the returned Store owns
// it and clears it together with itself.
func New(backing store.Store) *Store {
	return &Store{
		scalars: make(map[string]string),
		sets:    make(map[string]store.StringSet),
		backing: backing,
	}
}

// Backing returns the owned backing Store, or nil.
func (s *Store) Backing() store.Store {
	return s.backing
}

// Preload copies every scalar record of the backing Store into memory.
// It is a no-op without a backing Store.
func (s *Store) Preload() error {
	if s.backing == nil {
		return nil
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()

	n := 0
	err := s.backing.LoadAllInto(func(key, value string) error {
		s.mu.Lock()
		s.scalars[key] = value
		s.mu.Unlock()
		n++
		return nil
	})
	if err != nil {
		return fmt.Errorf("preloading scalars: %w", err)
	}
	logger.Debug("preloaded scalars from backing store", "entries", n)
	return nil
}

func (s *Store) SetScalar(key, value string) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	s.scalars[key] = value
	s.mu.Unlock()

	if s.backing != nil {
		return s.backing.SetScalar(key, value)
	}
	return nil
}

func (s *Store) SetSet(key string, value store.StringSet) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	s.sets[key] = value.Clone()
	s.mu.Unlock()

	if s.backing != nil {
		return s.backing.SetSet(key, value)
	}
	return nil
}

// AppendToSet adds value to the cached set. When the set is not cached yet
// and a backing Store exists, the persisted set is loaded first so the
// cached copy stays complete.
func (s *Store) AppendToSet(key, value string) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.RLock()
	_, cached := s.sets[key]
	s.mu.RUnlock()

	var persisted store.StringSet
	if !cached && s.backing != nil {
		var err error
		if persisted, err = s.backing.GetSet(key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	set, ok := s.sets[key]
	if !ok {
		set = persisted.Clone()
		s.sets[key] = set
	}
	set.Add(value)
	s.mu.Unlock()

	if s.backing != nil {
		return s.backing.AppendToSet(key, value)
	}
	return nil
}

// GetScalar never consults the backing Store.
func (s *Store) GetScalar(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scalars[key], nil
}

func (s *Store) GetSet(key string) (store.StringSet, error) {
	s.mu.RLock()
	set, ok := s.sets[key]
	if ok {
		out := set.Clone()
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	if s.backing != nil {
		return s.backing.GetSet(key)
	}
	return store.NewStringSet(), nil
}

// LoadAllInto enumerates the scalars held in memory.
func (s *Store) LoadAllInto(fn func(key, value string) error) error {
	s.mu.RLock()
	snapshot := make(map[string]string, len(s.scalars))
	for k, v := range s.scalars {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	for k, v := range snapshot {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Clear() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.DropCache()
	if s.backing != nil {
		return s.backing.Clear()
	}
	return nil
}

// DropCache empties the maps and leaves the backing Store alone.
func (s *Store) DropCache() {
	s.mu.Lock()
	s.scalars = make(map[string]string)
	s.sets = make(map[string]store.StringSet)
	s.mu.Unlock()
}

// Len returns the number of cached scalar and set records.
func (s *Store) Len() (scalars, sets int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scalars), len(s.sets)
}
