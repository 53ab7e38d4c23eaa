package repos

import (
	"context"
	"errors"
	"fmt"

	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/model"
)

type DiaryRepo struct {
	store docstore.Store
}

func (r *DiaryRepo) Ref(uid, diaryID string) docstore.Ref {
	return docstore.Ref{Collection: DiaryCollection(uid), Key: diaryID}
}

// Get loads one stored entry. A missing entry is a *NotFoundError.
func (r *DiaryRepo) Get(ctx context.Context, uid, diaryID string) (model.EntryDoc, error) {
	ref := r.Ref(uid, diaryID)
	doc, err := r.store.Get(ctx, ref)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.EntryDoc{}, &NotFoundError{Kind: KindEntry, Ref: ref}
	}
	if err != nil {
		return model.EntryDoc{}, err
	}
	return decodeEntry(diaryID, doc)
}

// List returns logged entries newest first, strictly after the cursor when one is given.
func (r *DiaryRepo) List(ctx context.Context, uid string, after *model.Cursor, f model.DiaryFilters, limit int) ([]model.EntryDoc, error) {
	q := docstore.Query{
		Collection: DiaryCollection(uid),
		Where:      filterPredicates(f),
		OrderBy:    "diaryDate",
		Desc:       true,
		Limit:      limit,
	}
	if after != nil {
		q.After = &docstore.Cursor{Value: after.OrderValue, Key: after.DiaryID}
	}
	return r.query(ctx, q)
}

// ListBookmarks returns pending bookmarks, most recently added first.
func (r *DiaryRepo) ListBookmarks(ctx context.Context, uid string, after *model.Cursor, limit int) ([]model.EntryDoc, error) {
	q := docstore.Query{
		Collection: DiaryCollection(uid),
		Where:      []docstore.Predicate{docstore.Equal("bookmark", true)},
		OrderBy:    "addedDate",
		Desc:       true,
		Limit:      limit,
	}
	if after != nil {
		q.After = &docstore.Cursor{Value: after.OrderValue, Key: after.DiaryID}
	}
	return r.query(ctx, q)
}

// Scan visits every entry of the user in key order.
func (r *DiaryRepo) Scan(ctx context.Context, uid string, fn func(model.EntryDoc) error) error {
	return scan(ctx, r.store, DiaryCollection(uid), func(s docstore.Snapshot) error {
		e, err := decodeEntry(s.Key, s.Data)
		if err != nil {
			return err
		}
		return fn(e)
	})
}

func (r *DiaryRepo) query(ctx context.Context, q docstore.Query) ([]model.EntryDoc, error) {
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.EntryDoc, 0, len(snaps))
	for _, s := range snaps {
		e, err := decodeEntry(s.Key, s.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func filterPredicates(f model.DiaryFilters) []docstore.Predicate {
	preds := []docstore.Predicate{docstore.Present("diaryDate")}
	if len(f.MediaTypes) > 0 {
		vs := make([]any, 0, len(f.MediaTypes))
		for _, t := range f.MediaTypes {
			vs = append(vs, string(t))
		}
		preds = append(preds, docstore.OneOf("type", vs...))
	}
	if f.Rating != nil {
		preds = append(preds, docstore.Equal("rating", *f.Rating))
	}
	if f.ReleasedDecade != nil {
		preds = append(preds, docstore.Equal("releasedDecade", *f.ReleasedDecade))
	}
	if f.DiaryYear != nil {
		preds = append(preds, docstore.Equal("diaryYear", *f.DiaryYear))
	}
	if f.LoggedBefore != nil {
		preds = append(preds, docstore.Equal("loggedBefore", *f.LoggedBefore))
	}
	if f.Genre != nil {
		preds = append(preds, docstore.Equal("genre", *f.Genre))
	}
	return preds
}

func decodeEntry(key string, doc docstore.Doc) (model.EntryDoc, error) {
	var e model.EntryDoc
	if err := docstore.Decode(doc, &e); err != nil {
		return model.EntryDoc{}, fmt.Errorf("diary entry %s: %w", key, err)
	}
	e.DiaryID = key
	return e, nil
}
