package model

import "time"

type MediaType string

// Allowed media types.
const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
	MediaAlbum MediaType = "album"
)

var AllowedMediaTypes = map[MediaType]struct{}{
	MediaMovie: {},
	MediaTV:    {},
	MediaAlbum: {},
}

func (t MediaType) Valid() bool {
	_, ok := AllowedMediaTypes[t]
	return ok
}

// MaxRating is five stars in half-star steps.
const MaxRating = 10

// MediaRef identifies one piece of media within a user's library.
type MediaRef struct {
	Type    MediaType `json:"type"`
	MediaID string    `json:"mediaId"`
}

// Key is the media record document key.
func (r MediaRef) Key() string { return string(r.Type) + "_" + r.MediaID }

// MediaMeta is the metadata supplied by the caller on first attach.
type MediaMeta struct {
	Title        string  `json:"title"`
	Poster       string  `json:"poster,omitempty"`
	Artist       string  `json:"artist,omitempty"`
	Genre        string  `json:"genre"`
	ReleasedDate string  `json:"releasedDate"` // YYYY-MM-DD
	Overview     *string `json:"overview,omitempty"`
}

type MediaRecord struct {
	Type         MediaType `json:"type"`
	MediaID      string    `json:"mediaId"`
	Title        string    `json:"title"`
	Poster       string    `json:"poster,omitempty"`
	Artist       string    `json:"artist,omitempty"`
	Genre        string    `json:"genre"`
	ReleasedDate string    `json:"releasedDate"`
	Overview     *string   `json:"overview,omitempty"`
	Count        int64     `json:"count"`
}

func (m MediaRecord) Ref() MediaRef { return MediaRef{Type: m.Type, MediaID: m.MediaID} }

// Logged holds the state that only a logged diary entry has.
type Logged struct {
	DiaryDate time.Time
}

// DiaryYear is the calendar year the entry was consumed in, in UTC.
func (l Logged) DiaryYear() int { return l.DiaryDate.UTC().Year() }

// Entry is one diary entry. A nil Logged makes it a bookmark.
type Entry struct {
	DiaryID      string
	Ref          MediaRef
	Genre        string
	ReleasedYear int
	Rating       int
	LoggedBefore bool
	AddedDate    time.Time
	Logged       *Logged
	Season       *int
	SeenEpisodes []int

	// denormalized from the media record for list rendering
	Title  string
	Poster string
	Artist string
}

func (e Entry) IsLogged() bool { return e.Logged != nil }

func (e Entry) ReleasedDecade() int { return e.ReleasedYear - e.ReleasedYear%10 }

// EntryDoc is the stored and wire shape of an Entry.
type EntryDoc struct {
	DiaryID        string    `json:"diaryId"`
	Type           MediaType `json:"type"`
	MediaID        string    `json:"mediaId"`
	Genre          string    `json:"genre"`
	ReleasedYear   int       `json:"releasedYear"`
	ReleasedDecade int       `json:"releasedDecade"`
	Rating         int       `json:"rating"`
	LoggedBefore   bool      `json:"loggedBefore"`
	Bookmark       bool      `json:"bookmark"`
	AddedDate      int64     `json:"addedDate"`           // unix ms
	DiaryDate      *int64    `json:"diaryDate,omitempty"` // unix ms
	DiaryYear      *int      `json:"diaryYear,omitempty"`
	Season         *int      `json:"season,omitempty"`
	SeenEpisodes   []int     `json:"seenEpisodes,omitempty"`
	Title          string    `json:"title,omitempty"`
	Poster         string    `json:"poster,omitempty"`
	Artist         string    `json:"artist,omitempty"`
}

// Doc derives the stored shape; bookmark, releasedDecade and diaryYear are never taken from the caller.
func (e Entry) Doc() EntryDoc {
	d := EntryDoc{
		DiaryID:        e.DiaryID,
		Type:           e.Ref.Type,
		MediaID:        e.Ref.MediaID,
		Genre:          e.Genre,
		ReleasedYear:   e.ReleasedYear,
		ReleasedDecade: e.ReleasedDecade(),
		Rating:         e.Rating,
		LoggedBefore:   e.LoggedBefore,
		Bookmark:       e.Logged == nil,
		AddedDate:      e.AddedDate.UnixMilli(),
		Season:         e.Season,
		SeenEpisodes:   e.SeenEpisodes,
		Title:          e.Title,
		Poster:         e.Poster,
		Artist:         e.Artist,
	}
	if e.Logged != nil {
		ms := e.Logged.DiaryDate.UnixMilli()
		year := e.Logged.DiaryYear()
		d.DiaryDate, d.DiaryYear = &ms, &year
	}
	return d
}

// Entry converts a stored document back. A document carrying a diary date is logged
// regardless of its bookmark flag.
func (d EntryDoc) Entry() Entry {
	e := Entry{
		DiaryID:      d.DiaryID,
		Ref:          MediaRef{Type: d.Type, MediaID: d.MediaID},
		Genre:        d.Genre,
		ReleasedYear: d.ReleasedYear,
		Rating:       d.Rating,
		LoggedBefore: d.LoggedBefore,
		AddedDate:    time.UnixMilli(d.AddedDate).UTC(),
		Season:       d.Season,
		SeenEpisodes: d.SeenEpisodes,
		Title:        d.Title,
		Poster:       d.Poster,
		Artist:       d.Artist,
	}
	if d.DiaryDate != nil {
		e.Logged = &Logged{DiaryDate: time.UnixMilli(*d.DiaryDate).UTC()}
	}
	return e
}

// Cursor is the keyset position of the last item of a page.
type Cursor struct {
	OrderValue int64  `json:"orderValue"`
	DiaryID    string `json:"diaryId"`
}

// DiaryFilters narrows a diary listing. Nil fields and an empty MediaTypes do not filter.
type DiaryFilters struct {
	MediaTypes     []MediaType
	Rating         *int
	ReleasedDecade *int
	DiaryYear      *int
	LoggedBefore   *bool
	Genre          *string
}
