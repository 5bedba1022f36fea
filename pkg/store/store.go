// Package store defines the opaque sorted byte-range scanner this core is
// planned against, an in-memory implementation, and an executor that runs a
// query plan and filters residual false positives.
package store

import "context"

// Record is one raw stored entry.
type Record struct {
	Key, Value []byte
}

// Iterator yields records in key order.
type Iterator interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Scanner is the only storage capability this core requires: a scan over a
// sorted byte keyspace, start inclusive, end exclusive. Implementations
// handle their own retry policy; the planner never retries.
type Scanner interface {
	Scan(ctx context.Context, start, end []byte) (Iterator, error)
}

// Writer is the ingest-side counterpart.
type Writer interface {
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
}
