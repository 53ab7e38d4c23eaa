package repos

import (
	"context"
	"fmt"

	"mediadiary-server/internal/docstore"
)

// Kinds of NotFoundError.
const (
	KindEntry = "diary entry"
	KindMedia = "media record"
)

// NotFoundError reports a document the caller expected to exist.
type NotFoundError struct {
	Kind string
	Ref  docstore.Ref
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.Ref) }

func (e *NotFoundError) Is(target error) bool { return target == docstore.ErrNotFound }

// countsOf converts an aggregate document into counters. Non-numeric fields are an error.
func countsOf(doc docstore.Doc) (map[string]int64, error) {
	out := make(map[string]int64, len(doc))
	for k, v := range doc {
		n, err := docstore.Int64(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// scan pages through a collection in key order.
func scan(ctx context.Context, store docstore.Store, collection string, fn func(docstore.Snapshot) error) error {
	var after *docstore.Cursor
	for {
		page, err := store.Query(ctx, docstore.Query{Collection: collection, After: after, Limit: scanPageSize})
		if err != nil {
			return err
		}
		for _, s := range page {
			if err := fn(s); err != nil {
				return err
			}
		}
		if len(page) < scanPageSize {
			return nil
		}
		after = &docstore.Cursor{Key: page[len(page)-1].Key}
	}
}

const scanPageSize = 200
