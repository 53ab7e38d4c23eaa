package diary_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediadiary-server/internal/diary"
	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/facets"
)

func TestAuditReportsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scenarioA(t, f)

	tamper := docstore.NewBatch().
		Set(f.repo.Facets.Ref(uid, facets.Diary), docstore.Doc{"type:movie": docstore.Inc(2), "genre:Horror": docstore.Inc(1)}).
		Patch(f.repo.Media.Ref(uid, madMax), docstore.Doc{"count": docstore.Inc(4)})
	require.NoError(t, f.store.Commit(ctx, tamper))

	rep, err := f.engine.Audit(ctx, uid)
	require.NoError(t, err)
	assert.False(t, rep.Clean())
	assert.Equal(t, 1, rep.Entries)
	assert.Equal(t, 1, rep.Media)
	assert.Equal(t, []diary.FacetDrift{
		{Family: facets.Diary, Key: "genre:Horror", Stored: 1, Expected: 0},
		{Family: facets.Diary, Key: "type:movie", Stored: 3, Expected: 1},
	}, rep.Facets)
	assert.Equal(t, []diary.MediaDrift{{Key: madMax.Key(), Stored: 5, Expected: 1}}, rep.Refs)
}

func TestAuditEmptyUser(t *testing.T) {
	f := newFixture(t)
	rep, err := f.engine.Audit(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, rep.Clean())
	assert.Zero(t, rep.Entries)
}
