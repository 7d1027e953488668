package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReconcileMetrics instruments one reconciliation cycle: the operations
// it emits by kind, how long the pass took, and refcount-floor
// violations surfaced while walking the temp view.
type ReconcileMetrics struct {
	opsEmitted       *prometheus.CounterVec
	duration         prometheus.Histogram
	refcountFloorHit *prometheus.CounterVec
}

// NewReconcileMetrics returns nil when metrics are disabled, so it can be
// passed straight through to a Reconciler with zero overhead.
func NewReconcileMetrics() *ReconcileMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()
	return &ReconcileMetrics{
		opsEmitted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "syncd_reconcile_ops_emitted_total",
				Help: "Total ASIC operations emitted by reconciliation, by kind.",
			},
			[]string{"kind"}, // "create", "set", "remove"
		),
		duration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "syncd_reconcile_duration_seconds",
				Help:    "Wall-clock duration of a full reconciliation cycle.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
			},
		),
		refcountFloorHit: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "syncd_reconcile_refcount_floor_violations_total",
				Help: "remove_or_default calls that observed a non-zero refcount, by object type.",
			},
			[]string{"object_type"},
		),
	}
}

// RecordOp increments the emitted-operation counter for kind.
func (m *ReconcileMetrics) RecordOp(kind string) {
	if m == nil {
		return
	}
	m.opsEmitted.WithLabelValues(kind).Inc()
}

// ObserveDuration records how long a reconciliation cycle took.
func (m *ReconcileMetrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// RecordRefcountFloorViolation records a non-zero refcount observed
// where the reconciler expected the object to be safely removable.
func (m *ReconcileMetrics) RecordRefcountFloorViolation(objectType string) {
	if m == nil {
		return
	}
	m.refcountFloorHit.WithLabelValues(objectType).Inc()
}
