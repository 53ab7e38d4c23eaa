package facets_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/facets"
	"mediadiary-server/internal/model"
)

func logged(rating int) model.Entry {
	return model.Entry{
		Ref:          model.MediaRef{Type: model.MediaMovie, MediaID: "550"},
		Genre:        "Action",
		ReleasedYear: 2015,
		Rating:       rating,
		Logged:       &model.Logged{DiaryDate: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)},
	}
}

func bookmark(rating int) model.Entry {
	e := logged(rating)
	e.Ref.Type = model.MediaTV
	e.Logged = nil
	return e
}

func TestKeysFor(t *testing.T) {
	assert.ElementsMatch(t, []facets.Key{
		"type:movie", "genre:Action", "releasedDecade:2010", "releasedYear:2015",
		"diaryYear:2024", "loggedBefore:false", "rating:0",
	}, facets.KeysFor(logged(0), facets.Diary))

	assert.ElementsMatch(t, []facets.Key{
		"type:tv", "genre:Action", "releasedDecade:2010", "releasedYear:2015",
	}, facets.KeysFor(bookmark(0), facets.Bookmarks))

	assert.Empty(t, facets.KeysFor(logged(0), facets.Memories))
	assert.Len(t, facets.KeysFor(logged(3), facets.Memories), 4)
}

func TestApplyEdit(t *testing.T) {
	prev := logged(0)
	next := logged(4)
	next.ReleasedYear = 2021

	d := facets.ApplyEdit(prev, next, facets.Diary, facets.DiaryEditDims)
	assert.Equal(t, map[facets.Key]int64{
		"rating:0":            -1,
		"rating:4":            1,
		"releasedYear:2015":   -1,
		"releasedYear:2021":   1,
		"releasedDecade:2010": -1,
		"releasedDecade:2020": 1,
	}, d[facets.Diary])

	assert.True(t, facets.ApplyEdit(prev, prev, facets.Diary, facets.DiaryEditDims).IsZero())
}

func TestRatingTransitionDeltas(t *testing.T) {
	up := facets.RatingTransitionDeltas(logged(0), logged(5))
	assert.EqualValues(t, 1, up.Get(facets.Memories, "type:movie"))

	down := facets.RatingTransitionDeltas(logged(5), logged(0))
	assert.EqualValues(t, -1, down.Get(facets.Memories, "genre:Action"))

	assert.True(t, facets.RatingTransitionDeltas(logged(2), logged(8)).IsZero())
	assert.True(t, facets.RatingTransitionDeltas(logged(0), logged(0)).IsZero())

	moved := logged(8)
	moved.Genre = "Drama"
	d := facets.RatingTransitionDeltas(logged(2), moved)
	assert.EqualValues(t, -1, d.Get(facets.Memories, "genre:Action"))
	assert.EqualValues(t, 1, d.Get(facets.Memories, "genre:Drama"))
}

func TestDeltasMergeSumsAndFieldsDropZero(t *testing.T) {
	d := facets.ApplyCreate(logged(0), facets.Diary)
	d.Merge(facets.ApplyDelete(logged(0), facets.Diary))
	d.Add(facets.Diary, "type:tv", 2)
	d.Add(facets.Diary, "type:tv", 1)

	assert.Equal(t, docstore.Doc{"type:tv": docstore.Inc(3)}, d.Fields(facets.Diary))
	assert.Equal(t, []facets.Family{facets.Diary}, d.Families())
	assert.Empty(t, d.Negative(facets.Diary))
}

func TestParseFamily(t *testing.T) {
	f, err := facets.ParseFamily("memories")
	assert.NoError(t, err)
	assert.Equal(t, facets.Memories, f)
	_, err = facets.ParseFamily("watchlist")
	assert.Error(t, err)
}
