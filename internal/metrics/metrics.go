// Package metrics exposes the Prometheus collectors of the service: state
// transitions, recomputation runs and soft sync outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector. Build it once per registry.
type Metrics struct {
	StateTransitionsTotal *prometheus.CounterVec
	RecomputeRunsTotal    *prometheus.CounterVec
	RecomputeDuration     prometheus.Histogram
	RecomputeChangedTotal prometheus.Counter

	SyncRunsTotal      *prometheus.CounterVec
	SyncDocumentsTotal *prometheus.CounterVec
	SyncDuration       prometheus.Histogram

	CashCountDiscrepancy prometheus.Histogram
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StateTransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mercadillo_state_transitions_total",
				Help: "Lifecycle state changes applied by recomputation and explicit actions",
			},
			[]string{"from", "to"},
		),
		RecomputeRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mercadillo_recompute_runs_total",
				Help: "State recomputation runs by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		RecomputeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mercadillo_recompute_duration_seconds",
				Help:    "Time spent recomputing lifecycle states",
				Buckets: prometheus.DefBuckets,
			},
		),
		RecomputeChangedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "mercadillo_recompute_changed_total",
				Help: "Events whose state changed during recomputation",
			},
		),
		SyncRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soft_sync_runs_total",
				Help: "Soft sync runs by outcome (ok, partial, failed, skipped)",
			},
			[]string{"outcome"},
		),
		SyncDocumentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soft_sync_documents_total",
				Help: "Documents moved by soft sync",
			},
			[]string{"collection", "direction"},
		),
		SyncDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "soft_sync_duration_seconds",
				Help:    "Duration of a soft sync run",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		CashCountDiscrepancy: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cash_count_discrepancy_abs",
				Help:    "Absolute difference between counted and expected cash at arqueo",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 500},
			},
		),
	}
}

// RecordTransition counts one state change.
func (m *Metrics) RecordTransition(from, to string) {
	m.StateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRecompute records one recomputation run.
func (m *Metrics) RecordRecompute(trigger string, d time.Duration, changed int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RecomputeRunsTotal.WithLabelValues(trigger, outcome).Inc()
	m.RecomputeDuration.Observe(d.Seconds())
	m.RecomputeChangedTotal.Add(float64(changed))
}

// RecordSync records one soft sync run.
func (m *Metrics) RecordSync(outcome string, d time.Duration) {
	m.SyncRunsTotal.WithLabelValues(outcome).Inc()
	m.SyncDuration.Observe(d.Seconds())
}

// RecordSyncDocuments counts documents pushed or pulled for a collection.
func (m *Metrics) RecordSyncDocuments(collection, direction string, n int) {
	if n <= 0 {
		return
	}
	m.SyncDocumentsTotal.WithLabelValues(collection, direction).Add(float64(n))
}

// RecordDiscrepancy observes the absolute cash count discrepancy.
func (m *Metrics) RecordDiscrepancy(abs float64) {
	m.CashCountDiscrepancy.Observe(abs)
}
