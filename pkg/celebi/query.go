package celebi

import (
	"errors"
	"sync"

	"celebi/pkg/store"
)

// ErrUnsupportedQuery is returned by Database.Query for query kinds it does
// not know how to answer.
var ErrUnsupportedQuery = errors.New("unsupported query")

// Query is a request for a set of record keys. The set of query kinds is
// closed: new kinds are added in this package.
type Query interface {
	isQuery()
}

// BucketQuery selects every key ever stored with a given bucket tag.
type BucketQuery struct {
	bucket string
}

// NewBucketQuery returns a query for the keys tagged with bucket.
func NewBucketQuery(bucket string) BucketQuery {
	return BucketQuery{bucket: bucket}
}

func (q BucketQuery) Bucket() string {
	return q.bucket
}

func (BucketQuery) isQuery() {}

// QueryResult holds the keys matching a query. The keys can be taken once:
// RecordKeys hands the set over to the caller and leaves the result empty.
type QueryResult struct {
	mu   sync.Mutex
	keys store.StringSet
}

func newQueryResult(keys store.StringSet) *QueryResult {
	return &QueryResult{keys: keys}
}

// RecordKeys transfers ownership of the matching keys to the caller.
// Subsequent calls return an empty set.
func (r *QueryResult) RecordKeys() store.StringSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := r.keys
	r.keys = nil
	if keys == nil {
		return store.NewStringSet()
	}
	return keys
}
