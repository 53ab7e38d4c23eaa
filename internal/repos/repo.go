package repos

import (
	"context"

	"mediadiary-server/internal/docstore"
)

// Repository groups the per-user document repositories over one store.
type Repository struct {
	store docstore.Store

	Diary  *DiaryRepo
	Media  *MediaRepo
	Facets *FacetsRepo
}

func New(store docstore.Store) *Repository {
	r := &Repository{store: store}
	r.Diary = &DiaryRepo{store: store}
	r.Media = &MediaRepo{store: store}
	r.Facets = &FacetsRepo{store: store}
	return r
}

// Commit applies a batch assembled from the sub-repositories' writes.
func (r *Repository) Commit(ctx context.Context, b *docstore.Batch) error {
	return r.store.Commit(ctx, b)
}

func (r *Repository) Close() error { return r.store.Close() }

func DiaryCollection(uid string) string   { return "users/" + uid + "/diary" }
func MediaCollection(uid string) string   { return "users/" + uid + "/media" }
func FiltersCollection(uid string) string { return "users/" + uid + "/filters" }
