package diary

import (
	"context"
	"sort"

	"mediadiary-server/internal/facets"
	"mediadiary-server/internal/model"
)

type FacetDrift struct {
	Family   facets.Family `json:"family"`
	Key      string        `json:"key"`
	Stored   int64         `json:"stored"`
	Expected int64         `json:"expected"`
}

type MediaDrift struct {
	Key      string `json:"key"`
	Stored   int64  `json:"stored"`
	Expected int64  `json:"expected"`
}

// Report lists every counter that disagrees with a full recount of the user's entries.
type Report struct {
	UID     string       `json:"uid"`
	Entries int          `json:"entries"`
	Media   int          `json:"media"`
	Facets  []FacetDrift `json:"facets"`
	Refs    []MediaDrift `json:"refs"`
	// entries carrying both a diary year and a pending bookmark flag
	Invalid []string `json:"invalid"`
}

func (r Report) Clean() bool { return len(r.Facets) == 0 && len(r.Refs) == 0 && len(r.Invalid) == 0 }

// Audit recounts a user's facets and media references from the stored entries and
// compares them with the stored aggregates. It never writes.
func (e *Engine) Audit(ctx context.Context, uid string) (Report, error) {
	if err := validateID("uid", uid); err != nil {
		return Report{}, err
	}
	rep := Report{UID: uid, Facets: []FacetDrift{}, Refs: []MediaDrift{}, Invalid: []string{}}
	expected := facets.Deltas{}
	refs := map[string]int64{}

	err := e.repo.Diary.Scan(ctx, uid, func(doc model.EntryDoc) error {
		rep.Entries++
		entry := doc.Entry()
		switch {
		case entry.IsLogged():
			if doc.Bookmark {
				rep.Invalid = append(rep.Invalid, doc.DiaryID)
			}
			expected.Merge(facets.ApplyCreate(entry, facets.Diary))
		case doc.Bookmark:
			expected.Merge(facets.ApplyCreate(entry, facets.Bookmarks))
		}
		expected.Merge(facets.ApplyCreate(entry, facets.Memories))
		refs[entry.Ref.Key()]++
		return nil
	})
	if err != nil {
		return Report{}, &StoreError{Op: "audit", Err: err}
	}

	for _, f := range facets.Families {
		stored, err := e.repo.Facets.Counts(ctx, uid, f)
		if err != nil {
			return Report{}, &StoreError{Op: "audit", Err: err}
		}
		for k, want := range expected[f] {
			if have := stored[string(k)]; have != want {
				rep.Facets = append(rep.Facets, FacetDrift{Family: f, Key: string(k), Stored: have, Expected: want})
			}
		}
		for k, have := range stored {
			if _, ok := expected[f][facets.Key(k)]; !ok && have != 0 {
				rep.Facets = append(rep.Facets, FacetDrift{Family: f, Key: k, Stored: have})
			}
		}
	}

	err = e.repo.Media.Scan(ctx, uid, func(rec model.MediaRecord) error {
		rep.Media++
		key := rec.Ref().Key()
		// a stored record always holds at least one reference
		if want := refs[key]; want != rec.Count || rec.Count <= 0 {
			rep.Refs = append(rep.Refs, MediaDrift{Key: key, Stored: rec.Count, Expected: want})
		}
		delete(refs, key)
		return nil
	})
	if err != nil {
		return Report{}, &StoreError{Op: "audit", Err: err}
	}
	for key, want := range refs {
		rep.Refs = append(rep.Refs, MediaDrift{Key: key, Expected: want})
	}

	sort.Slice(rep.Facets, func(i, j int) bool {
		if rep.Facets[i].Family != rep.Facets[j].Family {
			return rep.Facets[i].Family < rep.Facets[j].Family
		}
		return rep.Facets[i].Key < rep.Facets[j].Key
	})
	sort.Slice(rep.Refs, func(i, j int) bool { return rep.Refs[i].Key < rep.Refs[j].Key })
	return rep, nil
}
