package celebi

import "celebi/pkg/store"

// DefaultBaseDir is the process-relative directory that holds databases
// when no WithBaseDir option is given.
const DefaultBaseDir = ".celebi"

// Backend selects how CreateEmpty and Load build the primary store.
type Backend string

const (
	// BackendFile caches a file.Store in memory. This is the default.
	BackendFile Backend = "file"
	// BackendBolt caches a bbolt database file in memory.
	BackendBolt Backend = "bolt"
	// BackendMemory keeps primary data in memory only. Bucket indexes are
	// still persisted.
	BackendMemory Backend = "memory"
)

type options struct {
	baseDir string
	backend Backend
	primary store.Store
}

// Option configures CreateEmpty and Load.
type Option func(*options)

// WithBaseDir sets the directory under which the database directory lives.
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}

// WithBackend picks one of the built-in primary store compositions.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithStore makes the database use s as its primary store. The caller keeps
// ownership of s: Close does not close it and Destroy only clears it.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.primary = s
	}
}

func buildOptions(opts []Option) options {
	o := options{
		baseDir: DefaultBaseDir,
		backend: BackendFile,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type setOptions struct {
	bucket string
}

// SetOption configures a single write.
type SetOption func(*setOptions)

// InBucket tags the written key with bucket so a BucketQuery can find it.
// An empty bucket name leaves the key untagged.
func InBucket(bucket string) SetOption {
	return func(o *setOptions) {
		o.bucket = bucket
	}
}

func buildSetOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
