package repos

import (
	"context"
	"errors"
	"fmt"

	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/model"
)

// MediaRepo computes the reference-counted media record writes. It never commits.
type MediaRepo struct {
	store docstore.Store
}

func (r *MediaRepo) Ref(uid string, ref model.MediaRef) docstore.Ref {
	return docstore.Ref{Collection: MediaCollection(uid), Key: ref.Key()}
}

func (r *MediaRepo) Get(ctx context.Context, uid string, ref model.MediaRef) (model.MediaRecord, error) {
	dref := r.Ref(uid, ref)
	doc, err := r.store.Get(ctx, dref)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.MediaRecord{}, &NotFoundError{Kind: KindMedia, Ref: dref}
	}
	if err != nil {
		return model.MediaRecord{}, err
	}
	return decodeMedia(dref.Key, doc)
}

// Attach returns the write adding one reference to the media record. meta only lands
// when the write creates the record, so concurrent first attaches both succeed.
func (r *MediaRepo) Attach(uid string, ref model.MediaRef, meta model.MediaMeta) (docstore.Write, error) {
	onCreate, err := docstore.Encode(model.MediaRecord{
		Type:         ref.Type,
		MediaID:      ref.MediaID,
		Title:        meta.Title,
		Poster:       meta.Poster,
		Artist:       meta.Artist,
		Genre:        meta.Genre,
		ReleasedDate: meta.ReleasedDate,
		Overview:     meta.Overview,
	})
	if err != nil {
		return docstore.Write{}, err
	}
	return docstore.Write{
		Op:       docstore.OpSet,
		Ref:      r.Ref(uid, ref),
		Fields:   docstore.Doc{"count": docstore.Inc(1)},
		OnCreate: onCreate,
	}, nil
}

// Detach returns the write dropping one reference: a decrement, or a delete of the last one.
// The write expects the count it was computed from, so a concurrent detach fails the batch
// instead of leaving a record at zero.
func (r *MediaRepo) Detach(ctx context.Context, uid string, ref model.MediaRef) (docstore.Write, error) {
	rec, err := r.Get(ctx, uid, ref)
	if err != nil {
		return docstore.Write{}, err
	}
	dref := r.Ref(uid, ref)
	expect := docstore.Doc{"count": rec.Count}
	if rec.Count > 1 {
		return docstore.Write{Op: docstore.OpPatch, Ref: dref, Fields: docstore.Doc{"count": docstore.Inc(-1)}, Expect: expect}, nil
	}
	return docstore.Write{Op: docstore.OpDelete, Ref: dref, MustExist: true, Expect: expect}, nil
}

// Scan visits every media record of the user in key order.
func (r *MediaRepo) Scan(ctx context.Context, uid string, fn func(model.MediaRecord) error) error {
	return scan(ctx, r.store, MediaCollection(uid), func(s docstore.Snapshot) error {
		m, err := decodeMedia(s.Key, s.Data)
		if err != nil {
			return err
		}
		return fn(m)
	})
}

func decodeMedia(key string, doc docstore.Doc) (model.MediaRecord, error) {
	var m model.MediaRecord
	if err := docstore.Decode(doc, &m); err != nil {
		return model.MediaRecord{}, fmt.Errorf("media record %s: %w", key, err)
	}
	return m, nil
}
