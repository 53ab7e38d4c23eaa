// Package storetest holds the compliance suite every docstore backend must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediadiary-server/internal/docstore"
)

// Run exercises a docstore.Store implementation. makeStore may return a shared store;
// every case writes to its own collection.
func Run(t *testing.T, makeStore func(t *testing.T) docstore.Store) {
	t.Helper()
	s := makeStore(t)
	t.Cleanup(func() { _ = s.Close() })

	coll := func(name string) string { return "test/" + xid.New().String() + "/" + name }

	t.Run("CreateGetAndPreconditions", func(t *testing.T) {
		ctx := context.Background()
		ref := docstore.Ref{Collection: coll("docs"), Key: "a"}

		_, err := s.Get(ctx, ref)
		require.ErrorIs(t, err, docstore.ErrNotFound)

		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Create(ref, docstore.Doc{"name": "first", "n": 1})))
		got, err := s.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "first", got["name"])
		n, err := docstore.Int64(got["n"])
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		err = s.Commit(ctx, docstore.NewBatch().Create(ref, docstore.Doc{"name": "again"}))
		require.ErrorIs(t, err, docstore.ErrPrecondition)

		missing := docstore.Ref{Collection: ref.Collection, Key: "missing"}
		err = s.Commit(ctx, docstore.NewBatch().Patch(missing, docstore.Doc{"x": 1}))
		require.ErrorIs(t, err, docstore.ErrPrecondition)
		err = s.Commit(ctx, docstore.NewBatch().Delete(missing, true))
		require.ErrorIs(t, err, docstore.ErrPrecondition)
		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Delete(missing, false)))
	})

	t.Run("FailedBatchChangesNothing", func(t *testing.T) {
		ctx := context.Background()
		c := coll("docs")
		a := docstore.Ref{Collection: c, Key: "a"}
		b := docstore.Ref{Collection: c, Key: "b"}
		counts := docstore.Ref{Collection: c, Key: "counts"}
		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Create(a, docstore.Doc{"v": "old"})))

		batch := docstore.NewBatch().
			Patch(a, docstore.Doc{"v": "new"}).
			Set(counts, docstore.Doc{"x": docstore.Inc(1)}).
			Patch(b, docstore.Doc{"v": "nope"})
		require.ErrorIs(t, s.Commit(ctx, batch), docstore.ErrPrecondition)

		got, err := s.Get(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "old", got["v"])
		_, err = s.Get(ctx, counts)
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("ExpectAndOnCreate", func(t *testing.T) {
		ctx := context.Background()
		c := coll("media")
		ref := docstore.Ref{Collection: c, Key: "movie_1"}
		other := docstore.Ref{Collection: c, Key: "other"}
		attach := docstore.Write{
			Op:       docstore.OpSet,
			Ref:      ref,
			Fields:   docstore.Doc{"count": docstore.Inc(1)},
			OnCreate: docstore.Doc{"title": "first", "count": 0},
		}
		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Add(attach)))
		attach.OnCreate = docstore.Doc{"title": "second", "count": 0}
		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Add(attach)))

		got, err := s.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "first", got["title"])
		assertCount(t, got, "count", 2)

		stale := docstore.Write{Op: docstore.OpPatch, Ref: ref, Fields: docstore.Doc{"count": docstore.Inc(-1)}, Expect: docstore.Doc{"count": 3}}
		err = s.Commit(ctx, docstore.NewBatch().Create(other, docstore.Doc{"v": 1}).Add(stale))
		require.ErrorIs(t, err, docstore.ErrPrecondition)
		_, err = s.Get(ctx, other)
		require.ErrorIs(t, err, docstore.ErrNotFound)

		fresh := stale
		fresh.Expect = docstore.Doc{"count": 2}
		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Add(fresh)))
		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Add(docstore.Write{
			Op: docstore.OpDelete, Ref: ref, MustExist: true, Expect: docstore.Doc{"count": 1},
		})))
		_, err = s.Get(ctx, ref)
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("IncrementsAndRemove", func(t *testing.T) {
		ctx := context.Background()
		ref := docstore.Ref{Collection: coll("filters"), Key: "diary"}

		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Set(ref, docstore.Doc{"type:movie": docstore.Inc(1), "genre:Drama": docstore.Inc(2)})))
		require.NoError(t, s.Commit(ctx, docstore.NewBatch().
			Set(ref, docstore.Doc{"type:movie": docstore.Inc(1)}).
			Set(ref, docstore.Doc{"genre:Drama": docstore.Inc(-2), "rating:4": docstore.Inc(1)})))

		got, err := s.Get(ctx, ref)
		require.NoError(t, err)
		assertCount(t, got, "type:movie", 2)
		assertCount(t, got, "genre:Drama", 0)
		assertCount(t, got, "rating:4", 1)

		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Patch(ref, docstore.Doc{"rating:4": docstore.Remove, "label": "x"})))
		got, err = s.Get(ctx, ref)
		require.NoError(t, err)
		assert.NotContains(t, got, "rating:4")
		assert.Equal(t, "x", got["label"])

		require.NoError(t, s.Commit(ctx, docstore.NewBatch().Delete(ref, true)))
		_, err = s.Get(ctx, ref)
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("QueryOrderAndCursor", func(t *testing.T) {
		ctx := context.Background()
		c := coll("diary")
		batch := docstore.NewBatch()
		seed := []struct {
			key  string
			date int64
			kind string
		}{
			{"e1", 100, "movie"},
			{"e2", 300, "tv"},
			{"e3", 200, "movie"},
			{"e4", 300, "book"},
			{"e5", 50, "movie"},
		}
		for _, d := range seed {
			batch.Create(docstore.Ref{Collection: c, Key: d.key}, docstore.Doc{"date": d.date, "type": d.kind})
		}
		batch.Create(docstore.Ref{Collection: c, Key: "nodate"}, docstore.Doc{"type": "movie"})
		require.NoError(t, s.Commit(ctx, batch))

		all, err := s.Query(ctx, docstore.Query{Collection: c, OrderBy: "date", Desc: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"e4", "e2", "e3", "e1", "e5"}, keys(all))

		page, err := s.Query(ctx, docstore.Query{Collection: c, OrderBy: "date", Desc: true, Limit: 2})
		require.NoError(t, err)
		require.Equal(t, []string{"e4", "e2"}, keys(page))

		last := page[len(page)-1]
		next, err := s.Query(ctx, docstore.Query{
			Collection: c, OrderBy: "date", Desc: true, Limit: 2,
			After: &docstore.Cursor{Value: last.Data["date"], Key: last.Key},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"e3", "e1"}, keys(next))

		asc, err := s.Query(ctx, docstore.Query{Collection: c, OrderBy: "date", Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"e5", "e1", "e3"}, keys(asc))

		byKey, err := s.Query(ctx, docstore.Query{Collection: c})
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "e2", "e3", "e4", "e5", "nodate"}, keys(byKey))
	})

	t.Run("QueryPredicates", func(t *testing.T) {
		ctx := context.Background()
		c := coll("diary")
		batch := docstore.NewBatch()
		batch.Create(docstore.Ref{Collection: c, Key: "a"}, docstore.Doc{"type": "movie", "rating": 4, "loggedBefore": true, "date": 1})
		batch.Create(docstore.Ref{Collection: c, Key: "b"}, docstore.Doc{"type": "tv", "rating": 0, "loggedBefore": false, "date": 2})
		batch.Create(docstore.Ref{Collection: c, Key: "c"}, docstore.Doc{"type": "book", "rating": 8, "year": 2001, "date": 3})
		batch.Create(docstore.Ref{Collection: c, Key: "d"}, docstore.Doc{"type": "movie", "rating": 8, "year": nil, "date": 4})
		require.NoError(t, s.Commit(ctx, batch))

		q := func(preds ...docstore.Predicate) []string {
			t.Helper()
			res, err := s.Query(ctx, docstore.Query{Collection: c, Where: preds, OrderBy: "date"})
			require.NoError(t, err)
			return keys(res)
		}
		assert.Equal(t, []string{"a", "d"}, q(docstore.Equal("type", "movie")))
		assert.Equal(t, []string{"b", "c"}, q(docstore.OneOf("type", "tv", "book")))
		assert.Equal(t, []string{"c", "d"}, q(docstore.Equal("rating", 8)))
		assert.Equal(t, []string{"a", "c", "d"}, q(docstore.Greater("rating", 0)))
		assert.Equal(t, []string{"a"}, q(docstore.Equal("loggedBefore", true)))
		assert.Equal(t, []string{"b"}, q(docstore.Equal("loggedBefore", false)))
		assert.Equal(t, []string{"c"}, q(docstore.Present("year")))
		assert.Equal(t, []string{"d"}, q(docstore.Equal("type", "movie"), docstore.Greater("rating", 4)))
		assert.Empty(t, q(docstore.Equal("type", "game")))
	})

	t.Run("InvalidQuery", func(t *testing.T) {
		_, err := s.Query(context.Background(), docstore.Query{})
		require.Error(t, err)
		_, err = s.Query(context.Background(), docstore.Query{Collection: coll("x"), Where: []docstore.Predicate{docstore.OneOf("type")}})
		require.Error(t, err)
	})
}

func assertCount(t *testing.T, doc docstore.Doc, field string, want int64) {
	t.Helper()
	got, err := docstore.Int64(doc[field])
	require.NoError(t, err)
	assert.Equal(t, want, got, field)
}

func keys(snaps []docstore.Snapshot) []string {
	out := make([]string, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Key)
	}
	return out
}
