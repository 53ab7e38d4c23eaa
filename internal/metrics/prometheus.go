package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Engine metrics
	TransitionsTotal *prometheus.CounterVec
	CommitDuration   *prometheus.HistogramVec
	BatchWrites      prometheus.Histogram

	// Audit metrics
	AuditDrift *prometheus.GaugeVec
	AuditRuns  *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediadiary_transitions_total",
				Help: "Diary transitions by kind and outcome",
			},
			[]string{"transition", "outcome"},
		),

		CommitDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediadiary_commit_duration_seconds",
				Help:    "Duration of batch commits",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transition"},
		),

		BatchWrites: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mediadiary_batch_writes",
				Help:    "Number of document writes per committed batch",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 12},
			},
		),

		AuditDrift: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mediadiary_audit_drift",
				Help: "Mismatched counters found by the last audit of a user",
			},
			[]string{"kind"},
		),

		AuditRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediadiary_audit_runs_total",
				Help: "Audits run by outcome",
			},
			[]string{"outcome"},
		),

		CacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediadiary_cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"route"},
		),

		CacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediadiary_cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"route"},
		),
	}
}

// RecordTransition records the outcome of one diary transition
func (m *Metrics) RecordTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(transition, outcome).Inc()
}

// RecordCommit records a committed batch
func (m *Metrics) RecordCommit(transition string, writes int, seconds float64) {
	if m == nil {
		return
	}
	m.CommitDuration.WithLabelValues(transition).Observe(seconds)
	m.BatchWrites.Observe(float64(writes))
}

// RecordAudit records the drift found by one audit run
func (m *Metrics) RecordAudit(facetDrift, mediaDrift int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.AuditRuns.WithLabelValues("error").Inc()
		return
	}
	m.AuditRuns.WithLabelValues("ok").Inc()
	m.AuditDrift.WithLabelValues("facets").Set(float64(facetDrift))
	m.AuditDrift.WithLabelValues("media").Set(float64(mediaDrift))
}

func (m *Metrics) RecordCacheHit(route string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(route).Inc()
}

func (m *Metrics) RecordCacheMiss(route string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(route).Inc()
}
