// Package metrics exposes Prometheus instruments for the sync engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the sync instruments. A nil *Metrics records nothing.
type Metrics struct {
	PushOutcomes      *prometheus.CounterVec
	PullRuns          *prometheus.CounterVec
	PullDuration      *prometheus.HistogramVec
	CleanupDeleted    *prometheus.CounterVec
	PendingOperations *prometheus.GaugeVec
}

// New registers the instruments on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PushOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tillsync",
			Name:      "push_operations_total",
			Help:      "Pending operations processed by push, by entity type and outcome.",
		}, []string{"entity", "outcome"}),
		PullRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tillsync",
			Name:      "pull_runs_total",
			Help:      "Pull attempts by entity type, mode and result.",
		}, []string{"entity", "mode", "result"}),
		PullDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tillsync",
			Name:      "pull_duration_seconds",
			Help:      "Wall time of a complete pullAll per entity type.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"entity"}),
		CleanupDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tillsync",
			Name:      "cleanup_deleted_total",
			Help:      "Cached rows removed because the server no longer has them.",
		}, []string{"entity"}),
		PendingOperations: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tillsync",
			Name:      "pending_operations",
			Help:      "Rows in the pending operation log after the last push, by entity type.",
		}, []string{"entity"}),
	}
}

func (m *Metrics) ObservePush(entity, outcome string) {
	if m == nil {
		return
	}
	m.PushOutcomes.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) ObservePullAttempt(entity, mode string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.PullRuns.WithLabelValues(entity, mode, result).Inc()
}

func (m *Metrics) ObservePullDuration(entity string, d time.Duration) {
	if m == nil {
		return
	}
	m.PullDuration.WithLabelValues(entity).Observe(d.Seconds())
}

func (m *Metrics) ObserveCleanup(entity string, deleted int) {
	if m == nil || deleted == 0 {
		return
	}
	m.CleanupDeleted.WithLabelValues(entity).Add(float64(deleted))
}

func (m *Metrics) SetPending(entity string, n int) {
	if m == nil {
		return
	}
	m.PendingOperations.WithLabelValues(entity).Set(float64(n))
}
