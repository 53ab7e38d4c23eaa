package diary

import (
	"strings"

	"mediadiary-server/internal/model"
)

func validateEntry(e model.Entry) error {
	if !e.Ref.Type.Valid() {
		return invalid("type", "must be one of movie, tv, album")
	}
	if strings.TrimSpace(e.Ref.MediaID) == "" {
		return invalid("mediaId", "required")
	}
	if strings.TrimSpace(e.Genre) == "" {
		return invalid("genre", "required")
	}
	if e.ReleasedYear < 1 || e.ReleasedYear > 9999 {
		return invalid("releasedYear", "must be between 1 and 9999")
	}
	if e.Rating < 0 || e.Rating > model.MaxRating {
		return invalid("rating", "must be between 0 and 10")
	}
	if e.Logged != nil && e.Logged.DiaryDate.IsZero() {
		return invalid("diaryDate", "required for a logged entry")
	}
	if e.Ref.Type != model.MediaTV {
		if e.Season != nil {
			return invalid("season", "only tv entries have seasons")
		}
		if len(e.SeenEpisodes) > 0 {
			return invalid("seenEpisodes", "only tv entries have episodes")
		}
		return nil
	}
	if e.Season != nil && *e.Season < 1 {
		return invalid("season", "must be positive")
	}
	for _, ep := range e.SeenEpisodes {
		if ep < 1 {
			return invalid("seenEpisodes", "episode numbers must be positive")
		}
	}
	return nil
}

func validateFilters(f model.DiaryFilters) error {
	for _, t := range f.MediaTypes {
		if !t.Valid() {
			return invalid("type", "unknown media type "+string(t))
		}
	}
	if f.Rating != nil && (*f.Rating < 0 || *f.Rating > model.MaxRating) {
		return invalid("rating", "must be between 0 and 10")
	}
	return nil
}

// validateID rejects ids that would escape their collection path.
func validateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid(field, "required")
	}
	if strings.ContainsAny(id, "/") {
		return invalid(field, "must not contain '/'")
	}
	return nil
}
