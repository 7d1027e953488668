package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ExecutorMetrics instruments the executor's apply-view outcome: one
// GetResponse per apply cycle, terminating in success or fatal failure
// (spec.md §4.8, §5).
type ExecutorMetrics struct {
	applyOutcome *prometheus.CounterVec
}

// NewExecutorMetrics returns nil when metrics are disabled.
func NewExecutorMetrics() *ExecutorMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()
	return &ExecutorMetrics{
		applyOutcome: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "syncd_apply_view_total",
				Help: "Apply-view cycles, by outcome.",
			},
			[]string{"outcome"}, // "success", "fatal"
		),
	}
}

// RecordApplyOutcome increments the apply-view outcome counter.
func (m *ExecutorMetrics) RecordApplyOutcome(outcome string) {
	if m == nil {
		return
	}
	m.applyOutcome.WithLabelValues(outcome).Inc()
}
