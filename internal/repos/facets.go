package repos

import (
	"context"
	"errors"
	"fmt"

	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/facets"
)

var ErrNegativeCount = errors.New("facet count would go negative")

// FacetsRepo reads the per-user aggregate documents and turns deltas into writes.
type FacetsRepo struct {
	store docstore.Store
}

func (r *FacetsRepo) Ref(uid string, f facets.Family) docstore.Ref {
	return docstore.Ref{Collection: FiltersCollection(uid), Key: string(f)}
}

// Counts returns one family's counters. A user with no aggregate yet has no counts.
func (r *FacetsRepo) Counts(ctx context.Context, uid string, f facets.Family) (map[string]int64, error) {
	doc, err := r.store.Get(ctx, r.Ref(uid, f))
	if errors.Is(err, docstore.ErrNotFound) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, err
	}
	counts, err := countsOf(doc)
	if err != nil {
		return nil, fmt.Errorf("%s facets: %w", f, err)
	}
	return counts, nil
}

// Writes returns one merge-upsert per family document with non-zero deltas.
func (r *FacetsRepo) Writes(uid string, d facets.Deltas) []docstore.Write {
	var out []docstore.Write
	for _, f := range d.Families() {
		out = append(out, docstore.Write{Op: docstore.OpSet, Ref: r.Ref(uid, f), Fields: d.Fields(f)})
	}
	return out
}

// Guard fails with ErrNegativeCount when applying d to the stored counts would take a
// key below zero.
func (r *FacetsRepo) Guard(ctx context.Context, uid string, d facets.Deltas) error {
	for _, f := range d.Families() {
		neg := d.Negative(f)
		if len(neg) == 0 {
			continue
		}
		counts, err := r.Counts(ctx, uid, f)
		if err != nil {
			return err
		}
		for _, k := range neg {
			if have := counts[string(k)]; have+d.Get(f, k) < 0 {
				return fmt.Errorf("%w: %s[%s] is %d, delta %d", ErrNegativeCount, f, k, have, d.Get(f, k))
			}
		}
	}
	return nil
}
