package docstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests and the memory driver.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]Doc
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]Doc)}
}

func (m *Memory) Get(ctx context.Context, ref Ref) (Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[ref.Collection][ref.Key]
	if !ok {
		return nil, ErrNotFound
	}
	return Normalize(doc)
}

// Commit stages every write against a copy of the touched documents and swaps them in
// only when all writes succeed.
func (m *Memory) Commit(ctx context.Context, b *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	type staged struct {
		doc    Doc
		exists bool
	}
	pending := make(map[Ref]*staged)
	var order []Ref
	for _, w := range b.Writes() {
		st, ok := pending[w.Ref]
		if !ok {
			cur, exists := m.docs[w.Ref.Collection][w.Ref.Key]
			st = &staged{doc: cur, exists: exists}
			pending[w.Ref] = st
			order = append(order, w.Ref)
		}
		next, keep, err := Apply(st.doc, st.exists, w)
		if err != nil {
			return err
		}
		st.doc, st.exists = next, keep
	}
	for _, ref := range order {
		st := pending[ref]
		coll := m.docs[ref.Collection]
		if !st.exists {
			delete(coll, ref.Key)
			continue
		}
		if coll == nil {
			coll = make(map[string]Doc)
			m.docs[ref.Collection] = coll
		}
		coll[ref.Key] = st.doc
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []Snapshot
	for key, doc := range m.docs[q.Collection] {
		if q.OrderBy != "" {
			if v, ok := doc[q.OrderBy]; !ok || v == nil {
				continue
			}
		}
		if !Matches(doc, q.Where) {
			continue
		}
		out = append(out, Snapshot{Key: key, Data: doc})
	}
	m.mu.RUnlock()

	less := func(a, b Snapshot) int {
		if q.OrderBy != "" {
			if c := CompareValues(a.Data[q.OrderBy], b.Data[q.OrderBy]); c != 0 {
				return c
			}
		}
		return cmpString(a.Key, b.Key)
	}
	sort.Slice(out, func(i, j int) bool {
		c := less(out[i], out[j])
		if q.Desc {
			return c > 0
		}
		return c < 0
	})

	if q.After != nil {
		pivot := Snapshot{Key: q.After.Key, Data: Doc{q.OrderBy: q.After.Value}}
		start := len(out)
		for i, s := range out {
			c := less(s, pivot)
			if (q.Desc && c < 0) || (!q.Desc && c > 0) {
				start = i
				break
			}
		}
		out = out[start:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	for i := range out {
		data, err := Normalize(out[i].Data)
		if err != nil {
			return nil, err
		}
		out[i].Data = data
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
