// Package facets derives the per-user facet counter keys of diary entries and the
// signed deltas each diary transition applies to them. Everything here is pure.
package facets

import (
	"fmt"
	"sort"
	"strconv"

	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/model"
)

// Family is an independent counter namespace, stored as one document per user.
type Family string

const (
	Diary     Family = "diary"
	Bookmarks Family = "bookmarks"
	// Memories counts entries of either kind with a positive rating.
	Memories Family = "memories"
)

var Families = []Family{Diary, Bookmarks, Memories}

func ParseFamily(s string) (Family, error) {
	switch f := Family(s); f {
	case Diary, Bookmarks, Memories:
		return f, nil
	}
	return "", fmt.Errorf("unknown facet family %q", s)
}

// Dimension is one field entries are counted by.
type Dimension int

const (
	DimType Dimension = iota + 1
	DimGenre
	DimReleasedDecade
	DimReleasedYear
	DimDiaryYear
	DimLoggedBefore
	DimRating
)

func (d Dimension) String() string {
	switch d {
	case DimType:
		return "type"
	case DimGenre:
		return "genre"
	case DimReleasedDecade:
		return "releasedDecade"
	case DimReleasedYear:
		return "releasedYear"
	case DimDiaryYear:
		return "diaryYear"
	case DimLoggedBefore:
		return "loggedBefore"
	case DimRating:
		return "rating"
	}
	return "dimension(" + strconv.Itoa(int(d)) + ")"
}

// Key is a counter field, "<dimension>:<value>".
type Key string

func KeyOf(d Dimension, value string) Key { return Key(d.String() + ":" + value) }

// Key returns the entry's key for d. ok is false when the entry has no value for d,
// which is only the case for diaryYear on a bookmark.
func (d Dimension) Key(e model.Entry) (k Key, ok bool) {
	switch d {
	case DimType:
		return KeyOf(d, string(e.Ref.Type)), true
	case DimGenre:
		return KeyOf(d, e.Genre), true
	case DimReleasedDecade:
		return KeyOf(d, strconv.Itoa(e.ReleasedDecade())), true
	case DimReleasedYear:
		return KeyOf(d, strconv.Itoa(e.ReleasedYear)), true
	case DimDiaryYear:
		if e.Logged == nil {
			return "", false
		}
		return KeyOf(d, strconv.Itoa(e.Logged.DiaryYear())), true
	case DimLoggedBefore:
		return KeyOf(d, strconv.FormatBool(e.LoggedBefore)), true
	case DimRating:
		return KeyOf(d, strconv.Itoa(e.Rating)), true
	}
	return "", false
}

var (
	diaryDims    = []Dimension{DimType, DimGenre, DimReleasedDecade, DimReleasedYear, DimDiaryYear, DimLoggedBefore, DimRating}
	bookmarkDims = []Dimension{DimType, DimGenre, DimReleasedDecade, DimReleasedYear}
)

// DiaryEditDims may change when a logged entry is edited.
var DiaryEditDims = []Dimension{DimRating, DimReleasedDecade, DimReleasedYear, DimLoggedBefore, DimDiaryYear, DimGenre}

// Dimensions lists what a family counts.
func Dimensions(f Family) []Dimension {
	switch f {
	case Diary:
		return diaryDims
	case Bookmarks, Memories:
		return bookmarkDims
	}
	return nil
}

// KeysFor returns the keys entry e contributes to family f.
func KeysFor(e model.Entry, f Family) []Key {
	if f == Memories && e.Rating <= 0 {
		return nil
	}
	dims := Dimensions(f)
	keys := make([]Key, 0, len(dims))
	for _, d := range dims {
		if k, ok := d.Key(e); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Deltas are signed counter changes per family and key. Duplicate adds are summed.
type Deltas map[Family]map[Key]int64

func (d Deltas) Add(f Family, k Key, n int64) {
	if n == 0 {
		return
	}
	m := d[f]
	if m == nil {
		m = make(map[Key]int64)
		d[f] = m
	}
	m[k] += n
}

func (d Deltas) Merge(other Deltas) Deltas {
	for f, m := range other {
		for k, n := range m {
			d.Add(f, k, n)
		}
	}
	return d
}

func (d Deltas) Get(f Family, k Key) int64 { return d[f][k] }

// Families lists the families with a non-zero delta, in a stable order.
func (d Deltas) Families() []Family {
	var out []Family
	for _, f := range Families {
		for _, n := range d[f] {
			if n != 0 {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func (d Deltas) IsZero() bool { return len(d.Families()) == 0 }

// Fields renders one family as increment field values. Keys that summed to zero are dropped.
func (d Deltas) Fields(f Family) docstore.Doc {
	out := docstore.Doc{}
	for k, n := range d[f] {
		if n != 0 {
			out[string(k)] = docstore.Inc(n)
		}
	}
	return out
}

// Negative lists the keys of f whose delta is below zero, sorted.
func (d Deltas) Negative(f Family) []Key {
	var out []Key
	for k, n := range d[f] {
		if n < 0 {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ApplyCreate(e model.Entry, f Family) Deltas { return apply(e, f, 1) }

func ApplyDelete(e model.Entry, f Family) Deltas { return apply(e, f, -1) }

func apply(e model.Entry, f Family, n int64) Deltas {
	d := Deltas{}
	for _, k := range KeysFor(e, f) {
		d.Add(f, k, n)
	}
	return d
}

// ApplyEdit moves one count from the old to the new key for every dimension in dims
// whose value differs between prev and next.
func ApplyEdit(prev, next model.Entry, f Family, dims []Dimension) Deltas {
	d := Deltas{}
	for _, dim := range dims {
		oldKey, hadOld := dim.Key(prev)
		newKey, hasNew := dim.Key(next)
		if hadOld && hasNew && oldKey == newKey {
			continue
		}
		if hadOld {
			d.Add(f, oldKey, -1)
		}
		if hasNew {
			d.Add(f, newKey, 1)
		}
	}
	return d
}

// RatingTransitionDeltas keeps the memories family in step with a rating change.
// Crossing into a positive rating counts next, crossing back to zero uncounts prev,
// and between two positive ratings the memories keys follow any other edited dimension.
func RatingTransitionDeltas(prev, next model.Entry) Deltas {
	switch {
	case prev.Rating <= 0 && next.Rating > 0:
		return ApplyCreate(next, Memories)
	case prev.Rating > 0 && next.Rating <= 0:
		return ApplyDelete(prev, Memories)
	case prev.Rating > 0 && next.Rating > 0:
		return ApplyEdit(prev, next, Memories, Dimensions(Memories))
	}
	return Deltas{}
}
