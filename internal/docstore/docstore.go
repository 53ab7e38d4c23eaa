// Package docstore defines the document-store contract the diary engine is written
// against: keyed JSON documents grouped in collections, atomic multi-document batches
// with commit-time increments, and predicate queries with keyset pagination.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no document exists at the ref.
	ErrNotFound = errors.New("document not found")
	// ErrPrecondition fails a whole batch when a write's existence or Expect precondition
	// does not hold.
	ErrPrecondition = errors.New("precondition failed")
)

// Doc is a document body. Values are JSON types; numbers read back from a store
// are json.Number.
type Doc map[string]any

// Ref addresses one document.
type Ref struct {
	Collection string
	Key        string
}

func (r Ref) String() string { return r.Collection + "/" + r.Key }

// Snapshot is one query result.
type Snapshot struct {
	Key  string
	Data Doc
}

// Store is implemented by every backend. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, ref Ref) (Doc, error)
	// Commit applies every write of the batch or none of them.
	Commit(ctx context.Context, b *Batch) error
	Query(ctx context.Context, q Query) ([]Snapshot, error)
	Close() error
}
