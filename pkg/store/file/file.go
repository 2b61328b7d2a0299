// Package file implements store.Store with one file per key and value kind.
package file

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"celebi/internal/logging"
	"celebi/internal/record"
	"celebi/pkg/store"
)

const (
	ScalarSuffix = "_string.kv"
	SetSuffix    = "_string_set.kv"
)

var logger = logging.For("filestore")

// Store persists each key under dir as <key>_string.kv for the scalar value
// and <key>_string_set.kv for the set value. Concurrent AppendToSet calls on
// one key must be serialised by the caller; memory.Store does so.
type Store struct {
	dir string
}

var _ store.Store = (*Store)(nil)

// Open returns a Store rooted at dir, creating the directory tree if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) scalarPath(key string) string {
	return filepath.Join(s.dir, key+ScalarSuffix)
}

func (s *Store) setPath(key string) string {
	return filepath.Join(s.dir, key+SetSuffix)
}

// SetScalar writes the value to a temporary file and renames it over the
// record, so readers see either the old or the new value in full.
func (s *Store) SetScalar(key, value string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if err := s.writeAtomic(s.scalarPath(key), []byte(value)); err != nil {
		return fmt.Errorf("writing scalar %q: %w", key, err)
	}
	return nil
}

func (s *Store) SetSet(key string, value store.StringSet) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if err := s.writeAtomic(s.setPath(key), record.AppendTextSet(nil, value)); err != nil {
		return fmt.Errorf("writing set %q: %w", key, err)
	}
	return nil
}

// AppendToSet adds value to the set record of key. Members already present
// leave the record untouched. When the entry count keeps its decimal width
// the header is patched in place and the entry appended; otherwise the
// record is rewritten.
func (s *Store) AppendToSet(key, value string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	path := s.setPath(key)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return s.SetSet(key, store.NewStringSet(value))
	}
	if err != nil {
		return fmt.Errorf("opening set %q: %w", key, err)
	}
	defer f.Close()

	members, count, err := record.DecodeTextSet(f)
	if err != nil {
		return fmt.Errorf("reading set %q: %w", key, err)
	}
	if members.Has(value) {
		return nil
	}

	oldLine, newLine := record.CountLine(count), record.CountLine(count+1)
	if count == 0 || len(oldLine) != len(newLine) || !hasHeader(f, oldLine) {
		// Header width changes at powers of ten, or the header is not in
		// canonical form: rewrite the record.
		members.Add(value)
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing set %q: %w", key, err)
		}
		logger.Debug("rewriting set record", "key", key, "count", count+1)
		return s.SetSet(key, members)
	}

	// The entry goes in before the header so a reader never sees a count
	// that runs past the end of the record.
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seeking set %q: %w", key, err)
	}
	if _, err := f.Write(record.AppendTextEntry(nil, value)); err != nil {
		return fmt.Errorf("appending to set %q: %w", key, err)
	}
	if _, err := f.WriteAt([]byte(newLine), 0); err != nil {
		return fmt.Errorf("updating set %q header: %w", key, err)
	}
	return f.Close()
}

// hasHeader reports whether the record in f starts with exactly line.
func hasHeader(f *os.File, line string) bool {
	head := make([]byte, len(line))
	if _, err := f.ReadAt(head, 0); err != nil {
		return false
	}
	return string(head) == line
}

func (s *Store) GetScalar(key string) (string, error) {
	if err := store.ValidateKey(key); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.scalarPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading scalar %q: %w", key, err)
	}
	return string(data), nil
}

func (s *Store) GetSet(key string) (store.StringSet, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(s.setPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return store.NewStringSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening set %q: %w", key, err)
	}
	defer f.Close()

	members, _, err := record.DecodeTextSet(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading set %q: %w", key, err)
	}
	return members, nil
}

// LoadAllInto enumerates scalar records only. A missing directory yields
// nothing.
func (s *Store) LoadAllInto(fn func(key, value string) error) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing store dir: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, ScalarSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if err := fn(strings.TrimSuffix(name, ScalarSuffix), string(data)); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes the whole store directory. Clearing an already removed
// store is a no-op.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing store dir: %w", err)
	}
	return nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	// The directory may have been removed by Clear; recreate it lazily.
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	tmpName := filepath.Join(s.dir, ".tmp-"+uuid.NewString())
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
