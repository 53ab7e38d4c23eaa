package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediadiary-server/internal/diary"
	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/facets"
	"mediadiary-server/internal/jobs"
	"mediadiary-server/internal/logger"
	"mediadiary-server/internal/metrics"
	"mediadiary-server/internal/model"
	"mediadiary-server/internal/repos"
)

func TestAuditQueueDrain(t *testing.T) {
	q := jobs.NewAuditQueue()
	q.Mark("b")
	q.Mark("a")
	q.Mark("b")
	assert.Equal(t, []string{"a", "b"}, q.Drain())
	assert.Empty(t, q.Drain())
}

type stubAuditor map[string]diary.Report

func (s stubAuditor) Audit(_ context.Context, uid string) (diary.Report, error) {
	rep, ok := s[uid]
	if !ok {
		return diary.Report{}, errors.New("boom")
	}
	return rep, nil
}

func TestRunAuditReportsDrift(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a := stubAuditor{
		"clean": {UID: "clean"},
		"dirty": {UID: "dirty", Refs: []diary.MediaDrift{{Key: "movie_1", Stored: 2, Expected: 1}}},
	}

	drifted := jobs.RunAudit(context.Background(), a, []string{"clean", "dirty", "broken"}, m)
	require.Len(t, drifted, 1)
	assert.Equal(t, "dirty", drifted[0].UID)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditRuns.WithLabelValues("error")))
}

func TestRunAuditLogsFailureWithStack(t *testing.T) {
	var buf bytes.Buffer
	prevLogger, prevMarshaler := log.Logger, zerolog.ErrorStackMarshaler
	log.Logger = logger.New(&buf, "test", "info", false)
	t.Cleanup(func() { log.Logger, zerolog.ErrorStackMarshaler = prevLogger, prevMarshaler })

	jobs.RunAudit(context.Background(), stubAuditor{}, []string{"broken"}, nil)
	assert.Contains(t, buf.String(), `"message":"audit failed"`)
	assert.Contains(t, buf.String(), `"stack":`)
}

func TestRunAuditAgainstEngine(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	repo := repos.New(store)
	engine := diary.New(repo)

	ref := model.MediaRef{Type: model.MediaMovie, MediaID: "603"}
	_, err := engine.Create(ctx, "u1", model.Entry{
		Ref:          ref,
		Genre:        "Sci-Fi",
		ReleasedYear: 1999,
		Rating:       9,
		Logged:       &model.Logged{DiaryDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}, model.MediaMeta{Title: "The Matrix"})
	require.NoError(t, err)

	assert.Empty(t, jobs.RunAudit(ctx, engine, []string{"u1"}, nil))

	d := facets.Deltas{}
	d.Add(facets.Memories, "type:movie", 1)
	require.NoError(t, repo.Commit(ctx, docstore.NewBatch().Add(repo.Facets.Writes("u1", d)[0])))

	drifted := jobs.RunAudit(ctx, engine, []string{"u1"}, nil)
	require.Len(t, drifted, 1)
	assert.Equal(t, []diary.FacetDrift{{Family: facets.Memories, Key: "type:movie", Stored: 2, Expected: 1}}, drifted[0].Facets)
}

func TestStartAuditStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := jobs.NewAuditQueue()
	q.Mark("clean")
	done := make(chan struct{}, 1)
	a := notifyAuditor{done: done}
	jobs.StartAudit(ctx, a, q, 10*time.Millisecond, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit job did not run")
	}
	cancel()
}

type notifyAuditor struct{ done chan struct{} }

func (n notifyAuditor) Audit(_ context.Context, uid string) (diary.Report, error) {
	select {
	case n.done <- struct{}{}:
	default:
	}
	return diary.Report{UID: uid}, nil
}
