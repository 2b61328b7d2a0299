// Package store defines the storage capability shared by every celebi backend.
//
// A Store keeps two independent value kinds per key: a scalar string and a
// string set. Backends may be layered: a Store can own another Store as a
// write-through backing, forwarding each mutation after applying it locally.
// File, memory and bbolt implementations live in the subpackages; any other
// backend only needs to satisfy this interface.
package store

import (
	"errors"
	"strings"
)

var (
	ErrEmptyKey   = errors.New("key is empty")
	ErrInvalidKey = errors.New("key contains a path separator or NUL byte")
)

// Store is the key-value capability implemented by all backends.
//
// Missing keys are not distinguished from empty values: GetScalar returns ""
// and GetSet returns an empty set. Errors are reserved for storage failures.
type Store interface {
	// SetScalar overwrites the scalar value of key.
	SetScalar(key, value string) error
	// SetSet replaces the whole set value of key.
	SetSet(key string, value StringSet) error
	// AppendToSet adds value to the set of key, creating the set if needed.
	AppendToSet(key, value string) error

	GetScalar(key string) (string, error)
	GetSet(key string) (StringSet, error)

	// LoadAllInto calls fn once per persisted scalar record, in no particular
	// order. Iteration stops at the first error returned by fn.
	LoadAllInto(fn func(key, value string) error) error
	// Clear erases all state owned by the store, including any backing store.
	Clear() error
}

// ValidateKey rejects keys that cannot be mapped onto a single file name.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.ContainsAny(key, "/\\\x00") {
		return ErrInvalidKey
	}
	return nil
}
