package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"mediadiary-server/internal/diary"
	"mediadiary-server/internal/metrics"
)

// AuditQueue collects the users mutated since the last audit run.
type AuditQueue struct {
	mu   sync.Mutex
	uids map[string]struct{}
}

func NewAuditQueue() *AuditQueue { return &AuditQueue{uids: make(map[string]struct{})} }

// Mark queues uid for the next run.
func (q *AuditQueue) Mark(uid string) {
	q.mu.Lock()
	q.uids[uid] = struct{}{}
	q.mu.Unlock()
}

// Drain empties the queue and returns its users in sorted order.
func (q *AuditQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.uids))
	for uid := range q.uids {
		out = append(out, uid)
	}
	q.uids = make(map[string]struct{})
	sort.Strings(out)
	return out
}

// Auditor is the part of the engine the audit job needs.
type Auditor interface {
	Audit(ctx context.Context, uid string) (diary.Report, error)
}

// StartAudit audits every queued user once per interval until ctx is done.
func StartAudit(ctx context.Context, a Auditor, q *AuditQueue, interval time.Duration, m *metrics.Metrics) {
	if interval <= 0 {
		log.Info().Msg("audit job disabled")
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				RunAudit(ctx, a, q.Drain(), m)
			}
		}
	}()
}

// RunAudit audits uids in order and returns the reports that found drift.
// A user whose audit fails is logged and skipped.
func RunAudit(ctx context.Context, a Auditor, uids []string, m *metrics.Metrics) []diary.Report {
	var drifted []diary.Report
	for _, uid := range uids {
		if ctx.Err() != nil {
			return drifted
		}
		rep, err := a.Audit(ctx, uid)
		m.RecordAudit(len(rep.Facets), len(rep.Refs), err)
		if err != nil {
			log.Error().Stack().Err(err).Str("uid", uid).Msg("audit failed")
			continue
		}
		if rep.Clean() {
			continue
		}
		drifted = append(drifted, rep)
		log.Warn().
			Str("uid", uid).
			Int("facet_drift", len(rep.Facets)).
			Int("media_drift", len(rep.Refs)).
			Strs("invalid_entries", rep.Invalid).
			Msg("aggregate drift detected")
	}
	if len(uids) > 0 {
		log.Info().Int("users", len(uids)).Int("drifted", len(drifted)).Msg("audit job completed")
	}
	return drifted
}
