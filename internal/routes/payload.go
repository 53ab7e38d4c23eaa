package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"mediadiary-server/internal/model"
)

// entryPayload is the request body shared by the entry mutations.
type entryPayload struct {
	MediaID      string   `json:"mediaId"`
	Type         string   `json:"type"`
	Genre        string   `json:"genre"`
	ReleasedYear int      `json:"releasedYear"`
	Rating       int      `json:"rating"`
	LoggedBefore bool     `json:"loggedBefore"`
	DiaryDate    *instant `json:"diaryDate,omitempty"`
	Season       *int     `json:"season,omitempty"`
	SeenEpisodes []int    `json:"seenEpisodes,omitempty"`
	Title        string   `json:"title,omitempty"`
	Poster       string   `json:"poster,omitempty"`
	Artist       string   `json:"artist,omitempty"`
	ReleasedDate string   `json:"releasedDate,omitempty"`
	Overview     *string  `json:"overview,omitempty"`
}

func (p entryPayload) entry() model.Entry {
	e := model.Entry{
		Ref:          model.MediaRef{Type: model.MediaType(p.Type), MediaID: p.MediaID},
		Genre:        p.Genre,
		ReleasedYear: p.ReleasedYear,
		Rating:       p.Rating,
		LoggedBefore: p.LoggedBefore,
		Season:       p.Season,
		SeenEpisodes: p.SeenEpisodes,
		Title:        p.Title,
		Poster:       p.Poster,
		Artist:       p.Artist,
	}
	if p.DiaryDate != nil {
		e.Logged = &model.Logged{DiaryDate: time.Time(*p.DiaryDate)}
	}
	return e
}

func (p entryPayload) media() model.MediaMeta {
	return model.MediaMeta{
		Title:        p.Title,
		Poster:       p.Poster,
		Artist:       p.Artist,
		Genre:        p.Genre,
		ReleasedDate: p.ReleasedDate,
		Overview:     p.Overview,
	}
}

// instant accepts either an RFC 3339 string or unix milliseconds.
type instant time.Time

func (t *instant) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("diaryDate: %w", err)
		}
		*t = instant(v.UTC())
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("diaryDate: expected RFC 3339 string or unix milliseconds")
	}
	*t = instant(time.UnixMilli(ms).UTC())
	return nil
}
