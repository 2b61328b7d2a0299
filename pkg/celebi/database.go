// Package celebi is an embedded key-value database.
//
// A Database stores scalar strings and string sets under keys. Keys can be
// tagged with a bucket when written; a BucketQuery later returns every key
// ever tagged with that bucket. Data lives under <baseDir>/<name>, bucket
// indexes under <baseDir>/<name>/.indexes.
//
//	db, err := celebi.CreateEmpty("inventory", celebi.WithBaseDir("/var/lib/app"))
//	if err != nil { ... }
//	db.Set("sku-1", "widget", celebi.InBucket("tools"))
//	res, _ := db.Query(celebi.NewBucketQuery("tools"))
//	keys := res.RecordKeys()
//
// The bucket index is append-only: keys stay listed under a bucket after
// they are overwritten, retagged or destroyed.
package celebi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"celebi/internal/logging"
	"celebi/pkg/store"
	boltstore "celebi/pkg/store/bolt"
	"celebi/pkg/store/file"
	"celebi/pkg/store/memory"
)

const (
	// IndexDirName is the subdirectory holding bucket index records.
	IndexDirName = ".indexes"
	// BoltFileName is the database file used by BackendBolt.
	BoltFileName = "celebi.db"

	bucketKeyPrefix = "bucket::"
)

var (
	ErrEmptyName   = errors.New("database name is empty")
	ErrInvalidName = errors.New("database name contains a path separator")
)

var logger = logging.For("database")

// Database owns a primary store for records and an index store for bucket
// key sets. With the built-in backends it is safe for concurrent use within
// one process; a store passed with WithStore must be safe on its own.
// Separate handles on the same directory are not coordinated.
type Database struct {
	name    string
	dir     string
	primary store.Store
	index   store.Store

	// ownsDir is set for built-in compositions; Destroy then removes dir.
	ownsDir bool
	closers []io.Closer
	closed  bool

	indexMu sync.Mutex
}

// CreateEmpty provisions <baseDir>/<name> and returns a database on it. An
// existing directory is reused as is.
func CreateEmpty(name string, opts ...Option) (*Database, error) {
	o := buildOptions(opts)
	dir, err := databaseDir(o.baseDir, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := open(name, dir, o)
	if err != nil {
		return nil, err
	}
	logger.Info("database created", "name", name, "dir", dir, "backend", string(o.backend))
	return db, nil
}

// Load attaches to <baseDir>/<name> without checking that it was created
// before; a database that never existed reads as empty. Scalars persisted by
// a built-in backend are preloaded into the memory cache.
func Load(name string, opts ...Option) (*Database, error) {
	o := buildOptions(opts)
	dir, err := databaseDir(o.baseDir, name)
	if err != nil {
		return nil, err
	}

	db, err := open(name, dir, o)
	if err != nil {
		return nil, err
	}
	if cache, ok := db.primary.(*memory.Store); ok && db.ownsDir {
		if err := cache.Preload(); err != nil {
			db.Close()
			return nil, fmt.Errorf("loading database %q: %w", name, err)
		}
	}
	logger.Debug("database loaded", "name", name, "dir", dir)
	return db, nil
}

func databaseDir(baseDir, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return filepath.Join(baseDir, name), nil
}

func open(name, dir string, o options) (*Database, error) {
	db := &Database{name: name, dir: dir}

	switch {
	case o.primary != nil:
		db.primary = o.primary
	case o.backend == BackendMemory:
		db.primary = memory.New(nil)
		db.ownsDir = true
	case o.backend == BackendBolt:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
		bs, err := boltstore.Open(filepath.Join(dir, BoltFileName))
		if err != nil {
			return nil, err
		}
		db.primary = memory.New(bs)
		db.closers = append(db.closers, bs)
		db.ownsDir = true
	case o.backend == BackendFile || o.backend == "":
		fst, err := file.Open(dir)
		if err != nil {
			return nil, err
		}
		db.primary = memory.New(fst)
		db.ownsDir = true
	default:
		return nil, fmt.Errorf("unknown backend %q", o.backend)
	}

	idx, err := file.Open(filepath.Join(dir, IndexDirName))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening index store: %w", err)
	}
	db.index = memory.New(idx)

	return db, nil
}

// Name returns the database name.
func (db *Database) Name() string {
	return db.name
}

// Directory returns the database directory.
func (db *Database) Directory() string {
	return db.dir
}

// Destroy clears the primary store. For built-in compositions it also
// releases file handles and removes the database directory. Destroying an
// already destroyed or never created database is not an error.
//
// The index store is not cleared: its cached entries survive on this handle.
func (db *Database) Destroy() error {
	if db.closed {
		// Backend handles are gone; only the cache is left to empty.
		if cache, ok := db.primary.(*memory.Store); ok {
			cache.DropCache()
		}
	} else if err := db.primary.Clear(); err != nil {
		return fmt.Errorf("clearing primary store: %w", err)
	}
	if !db.ownsDir {
		logger.Info("database cleared", "name", db.name)
		return nil
	}

	if err := db.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(db.dir); err != nil {
		return fmt.Errorf("removing database dir: %w", err)
	}
	logger.Info("database destroyed", "name", db.name, "dir", db.dir)
	return nil
}

// Close releases backend handles opened by CreateEmpty or Load. Stores
// passed with WithStore are left open.
func (db *Database) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true

	var errs []error
	for _, c := range db.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing database %q: %w", db.name, err)
	}
	return nil
}

// Set writes a scalar value.
func (db *Database) Set(key, value string, opts ...SetOption) error {
	o := buildSetOptions(opts)
	if err := validateWrite(key, o); err != nil {
		return err
	}
	if err := db.primary.SetScalar(key, value); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return db.tag(key, o)
}

// SetSet replaces the set value of key.
func (db *Database) SetSet(key string, value store.StringSet, opts ...SetOption) error {
	o := buildSetOptions(opts)
	if err := validateWrite(key, o); err != nil {
		return err
	}
	if err := db.primary.SetSet(key, value); err != nil {
		return fmt.Errorf("setting set %q: %w", key, err)
	}
	return db.tag(key, o)
}

// AppendToSet adds one member to the set value of key.
func (db *Database) AppendToSet(key, value string, opts ...SetOption) error {
	o := buildSetOptions(opts)
	if err := validateWrite(key, o); err != nil {
		return err
	}
	if err := db.primary.AppendToSet(key, value); err != nil {
		return fmt.Errorf("appending to %q: %w", key, err)
	}
	return db.tag(key, o)
}

// Get returns the scalar value of key, or "" when absent.
func (db *Database) Get(key string) (string, error) {
	return db.primary.GetScalar(key)
}

// GetSet returns the set value of key, or an empty set when absent.
func (db *Database) GetSet(key string) (store.StringSet, error) {
	return db.primary.GetSet(key)
}

// ForEach calls fn for every scalar record of the primary store.
func (db *Database) ForEach(fn func(key, value string) error) error {
	return db.primary.LoadAllInto(fn)
}

// Query answers q from the index store.
func (db *Database) Query(q Query) (*QueryResult, error) {
	switch q := q.(type) {
	case BucketQuery:
		keys, err := db.index.GetSet(bucketIndexKey(q.Bucket()))
		if err != nil {
			return nil, fmt.Errorf("querying bucket %q: %w", q.Bucket(), err)
		}
		return newQueryResult(keys), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedQuery, q)
	}
}

// tag records key in the index set of the requested bucket. The whole set is
// written back so the record never holds duplicates.
func (db *Database) tag(key string, o setOptions) error {
	if o.bucket == "" {
		return nil
	}
	indexKey := bucketIndexKey(o.bucket)

	db.indexMu.Lock()
	defer db.indexMu.Unlock()

	keys, err := db.index.GetSet(indexKey)
	if err != nil {
		return fmt.Errorf("reading bucket %q: %w", o.bucket, err)
	}
	if keys.Has(key) {
		return nil
	}
	keys.Add(key)
	if err := db.index.SetSet(indexKey, keys); err != nil {
		return fmt.Errorf("indexing %q in bucket %q: %w", key, o.bucket, err)
	}
	logger.Debug("key indexed", "key", key, "bucket", o.bucket, "bucket_size", keys.Len())
	return nil
}

// validateWrite rejects keys and buckets the stores cannot hold, before any
// layer is modified.
func validateWrite(key string, o setOptions) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if o.bucket != "" {
		if err := store.ValidateKey(bucketIndexKey(o.bucket)); err != nil {
			return fmt.Errorf("bucket %q: %w", o.bucket, err)
		}
	}
	return nil
}

func bucketIndexKey(bucket string) string {
	return bucketKeyPrefix + bucket
}
