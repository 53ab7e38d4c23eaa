// Package diary is the mutation engine for diary entries. Every transition loads the
// prior state, computes the entry, media and facet writes, and commits them as one batch.
package diary

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/facets"
	"mediadiary-server/internal/metrics"
	"mediadiary-server/internal/model"
	"mediadiary-server/internal/repos"
)

// PageSize is the fixed size of listing pages.
const PageSize = 30

type Transition string

const (
	TransitionCreate          Transition = "create"
	TransitionAddBookmark     Transition = "add_bookmark"
	TransitionBookmarkToDiary Transition = "bookmark_to_diary"
	TransitionDiaryEdit       Transition = "diary_edit"
	TransitionBookmarkRating  Transition = "bookmark_rating_edit"
	TransitionDelete          Transition = "delete"

	// recorded for edits rejected before their kind is known
	transitionEdit Transition = "edit"
)

type Engine struct {
	repo    *repos.Repository
	now     func() time.Time
	newID   func() string
	metrics *metrics.Metrics
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDs(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func New(repo *repos.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return xid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Page is one listing page. Next is set when the page is full.
type Page struct {
	Entries []model.EntryDoc
	Next    *model.Cursor
}

// Create logs a new diary entry for media the caller selected.
func (e *Engine) Create(ctx context.Context, uid string, in model.Entry, media model.MediaMeta) (doc model.EntryDoc, err error) {
	defer e.record(TransitionCreate, &err)
	if in.Logged == nil {
		return model.EntryDoc{}, invalid("diaryDate", "required for a diary entry")
	}
	return e.insert(ctx, uid, TransitionCreate, in, media)
}

// AddBookmark saves media for later as a bookmark.
func (e *Engine) AddBookmark(ctx context.Context, uid string, in model.Entry, media model.MediaMeta) (doc model.EntryDoc, err error) {
	defer e.record(TransitionAddBookmark, &err)
	if in.Logged != nil {
		return model.EntryDoc{}, invalid("diaryDate", "a bookmark has no diary date")
	}
	return e.insert(ctx, uid, TransitionAddBookmark, in, media)
}

func (e *Engine) insert(ctx context.Context, uid string, tr Transition, in model.Entry, media model.MediaMeta) (model.EntryDoc, error) {
	if err := validateID("uid", uid); err != nil {
		return model.EntryDoc{}, err
	}
	if err := validateEntry(in); err != nil {
		return model.EntryDoc{}, err
	}

	entry := in
	entry.DiaryID = e.newID()
	entry.AddedDate = e.now().UTC()
	if entry.Title == "" {
		entry.Title, entry.Poster, entry.Artist = media.Title, media.Poster, media.Artist
	}
	if media.Genre == "" {
		media.Genre = entry.Genre
	}

	attach, err := e.repo.Media.Attach(uid, entry.Ref, media)
	if err != nil {
		return model.EntryDoc{}, &StoreError{Op: string(tr), Err: err}
	}

	family := facets.Diary
	if !entry.IsLogged() {
		family = facets.Bookmarks
	}
	deltas := facets.ApplyCreate(entry, family)
	if entry.Rating > 0 {
		deltas.Merge(facets.ApplyCreate(entry, facets.Memories))
	}

	doc := entry.Doc()
	fields, err := docstore.Encode(doc)
	if err != nil {
		return model.EntryDoc{}, &StoreError{Op: string(tr), Err: err}
	}
	b := docstore.NewBatch().Create(e.repo.Diary.Ref(uid, doc.DiaryID), fields).Add(attach)
	e.addFacets(b, uid, deltas)
	if err := e.commit(ctx, tr, b); err != nil {
		return model.EntryDoc{}, err
	}
	return doc, nil
}

// Edit replaces the mutable fields of a stored entry. The prior state is read from the
// store. Logging a bookmark converts it; a logged entry never reverts to a bookmark.
// A bookmark that stays a bookmark only takes the new rating.
func (e *Engine) Edit(ctx context.Context, uid, diaryID string, in model.Entry) (doc model.EntryDoc, err error) {
	tr := transitionEdit
	defer func() { e.record(tr, &err) }()

	if err := validateID("uid", uid); err != nil {
		return model.EntryDoc{}, err
	}
	if err := validateID("diaryId", diaryID); err != nil {
		return model.EntryDoc{}, err
	}
	if err := validateEntry(in); err != nil {
		return model.EntryDoc{}, err
	}

	prevDoc, err := e.repo.Diary.Get(ctx, uid, diaryID)
	if err != nil {
		return model.EntryDoc{}, readErr(string(tr), err)
	}
	prev := prevDoc.Entry()
	if in.Ref.Type != prev.Ref.Type {
		return model.EntryDoc{}, invalid("type", "cannot change after creation")
	}
	if in.Ref.MediaID != prev.Ref.MediaID {
		return model.EntryDoc{}, invalid("mediaId", "cannot change after creation")
	}

	next := in
	next.DiaryID, next.AddedDate = prev.DiaryID, prev.AddedDate
	if next.Title == "" {
		next.Title, next.Poster, next.Artist = prev.Title, prev.Poster, prev.Artist
	}

	var deltas facets.Deltas
	switch {
	case prev.IsLogged() && !next.IsLogged():
		return model.EntryDoc{}, invalid("diaryDate", "a logged entry cannot become a bookmark")
	case !prev.IsLogged() && next.IsLogged():
		tr = TransitionBookmarkToDiary
		deltas = facets.ApplyCreate(next, facets.Diary).Merge(facets.RatingTransitionDeltas(prev, next))
		if prevDoc.Bookmark {
			deltas.Merge(facets.ApplyDelete(prev, facets.Bookmarks))
		}
	case prev.IsLogged():
		tr = TransitionDiaryEdit
		deltas = facets.ApplyEdit(prev, next, facets.Diary, facets.DiaryEditDims).Merge(facets.RatingTransitionDeltas(prev, next))
	default:
		tr = TransitionBookmarkRating
		rated := prev
		rated.Rating = next.Rating
		next = rated
		deltas = facets.RatingTransitionDeltas(prev, next)
	}

	nextDoc := next.Doc()
	if tr == TransitionBookmarkRating {
		nextDoc.Bookmark = prevDoc.Bookmark
	}
	patch, err := diffDocs(prevDoc, nextDoc)
	if err != nil {
		return model.EntryDoc{}, &StoreError{Op: string(tr), Err: err}
	}
	if len(patch) == 0 && deltas.IsZero() {
		return prevDoc, nil
	}
	if err := e.guard(ctx, tr, uid, deltas); err != nil {
		return model.EntryDoc{}, err
	}

	b := docstore.NewBatch().Patch(e.repo.Diary.Ref(uid, diaryID), patch)
	e.addFacets(b, uid, deltas)
	if err := e.commit(ctx, tr, b); err != nil {
		return model.EntryDoc{}, err
	}
	return nextDoc, nil
}

// Delete removes an entry, releases its media reference and uncounts its facets.
func (e *Engine) Delete(ctx context.Context, uid, diaryID string) (err error) {
	defer e.record(TransitionDelete, &err)
	tr := TransitionDelete

	if err := validateID("uid", uid); err != nil {
		return err
	}
	if err := validateID("diaryId", diaryID); err != nil {
		return err
	}
	prevDoc, err := e.repo.Diary.Get(ctx, uid, diaryID)
	if err != nil {
		return readErr(string(tr), err)
	}
	prev := prevDoc.Entry()

	deltas := facets.Deltas{}
	switch {
	case prev.IsLogged():
		deltas.Merge(facets.ApplyDelete(prev, facets.Diary))
	case prevDoc.Bookmark:
		deltas.Merge(facets.ApplyDelete(prev, facets.Bookmarks))
	}
	if prev.Rating > 0 {
		deltas.Merge(facets.ApplyDelete(prev, facets.Memories))
	}

	detach, err := e.repo.Media.Detach(ctx, uid, prev.Ref)
	if err != nil {
		return readErr(string(tr), err)
	}
	if err := e.guard(ctx, tr, uid, deltas); err != nil {
		return err
	}

	b := docstore.NewBatch().Delete(e.repo.Diary.Ref(uid, diaryID), true).Add(detach)
	e.addFacets(b, uid, deltas)
	return e.commit(ctx, tr, b)
}

// Get returns one stored entry.
func (e *Engine) Get(ctx context.Context, uid, diaryID string) (model.EntryDoc, error) {
	if err := validateID("uid", uid); err != nil {
		return model.EntryDoc{}, err
	}
	if err := validateID("diaryId", diaryID); err != nil {
		return model.EntryDoc{}, err
	}
	doc, err := e.repo.Diary.Get(ctx, uid, diaryID)
	if err != nil {
		return model.EntryDoc{}, readErr("get", err)
	}
	return doc, nil
}

// List returns logged entries newest first, starting strictly after cursor.
func (e *Engine) List(ctx context.Context, uid string, cursor *model.Cursor, f model.DiaryFilters) (Page, error) {
	if err := validateID("uid", uid); err != nil {
		return Page{}, err
	}
	if err := validateFilters(f); err != nil {
		return Page{}, err
	}
	entries, err := e.repo.Diary.List(ctx, uid, cursor, f, PageSize)
	if err != nil {
		return Page{}, &StoreError{Op: "list", Err: err}
	}
	page := Page{Entries: entries}
	if len(entries) == PageSize {
		last := entries[len(entries)-1]
		page.Next = &model.Cursor{OrderValue: *last.DiaryDate, DiaryID: last.DiaryID}
	}
	return page, nil
}

// ListBookmarks returns pending bookmarks, most recently added first.
func (e *Engine) ListBookmarks(ctx context.Context, uid string, cursor *model.Cursor) (Page, error) {
	if err := validateID("uid", uid); err != nil {
		return Page{}, err
	}
	entries, err := e.repo.Diary.ListBookmarks(ctx, uid, cursor, PageSize)
	if err != nil {
		return Page{}, &StoreError{Op: "list bookmarks", Err: err}
	}
	page := Page{Entries: entries}
	if len(entries) == PageSize {
		last := entries[len(entries)-1]
		page.Next = &model.Cursor{OrderValue: last.AddedDate, DiaryID: last.DiaryID}
	}
	return page, nil
}

// FacetCounts returns the counters of one family.
func (e *Engine) FacetCounts(ctx context.Context, uid string, f facets.Family) (map[string]int64, error) {
	if err := validateID("uid", uid); err != nil {
		return nil, err
	}
	counts, err := e.repo.Facets.Counts(ctx, uid, f)
	if err != nil {
		return nil, &StoreError{Op: "facet counts", Err: err}
	}
	return counts, nil
}

func (e *Engine) addFacets(b *docstore.Batch, uid string, d facets.Deltas) {
	for _, w := range e.repo.Facets.Writes(uid, d) {
		b.Add(w)
	}
}

func (e *Engine) guard(ctx context.Context, tr Transition, uid string, d facets.Deltas) error {
	err := e.repo.Facets.Guard(ctx, uid, d)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repos.ErrNegativeCount):
		return &ConsistencyError{Op: string(tr), Err: err}
	default:
		return &StoreError{Op: string(tr), Err: err}
	}
}

func (e *Engine) commit(ctx context.Context, tr Transition, b *docstore.Batch) error {
	start := time.Now()
	if err := e.repo.Commit(ctx, b); err != nil {
		return commitErr(string(tr), err)
	}
	e.metrics.RecordCommit(string(tr), b.Len(), time.Since(start).Seconds())
	zerolog.Ctx(ctx).Debug().Str("transition", string(tr)).Int("writes", b.Len()).Msg("diary batch committed")
	return nil
}

func (e *Engine) record(tr Transition, err *error) {
	e.metrics.RecordTransition(string(tr), outcome(*err))
}

// diffDocs returns the patch turning prev into next. Fields next no longer carries are
// removed; identity fields are never rewritten.
func diffDocs(prev, next model.EntryDoc) (docstore.Doc, error) {
	p, err := docstore.Encode(prev)
	if err != nil {
		return nil, err
	}
	n, err := docstore.Encode(next)
	if err != nil {
		return nil, err
	}
	patch := docstore.Doc{}
	for k, v := range n {
		if pv, ok := p[k]; !ok || !reflect.DeepEqual(pv, v) {
			patch[k] = v
		}
	}
	for k := range p {
		if _, ok := n[k]; !ok {
			patch[k] = docstore.Remove
		}
	}
	delete(patch, "diaryId")
	delete(patch, "addedDate")
	return patch, nil
}
