package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RecorderMetrics instruments the recording stream's write path
// (spec.md §4.10): how long each line takes to format and land on disk.
type RecorderMetrics struct {
	writeLatency *prometheus.HistogramVec
}

// NewRecorderMetrics returns nil when metrics are disabled.
func NewRecorderMetrics() *RecorderMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()
	return &RecorderMetrics{
		writeLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "syncd_recorder_write_seconds",
				Help:    "Time to format and write one recording-stream line, by tag.",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12),
			},
			[]string{"tag"},
		),
	}
}

// ObserveWrite records how long writing one recording line with the
// given tag took.
func (m *RecorderMetrics) ObserveWrite(tag string, d time.Duration) {
	if m == nil {
		return
	}
	m.writeLatency.WithLabelValues(tag).Observe(d.Seconds())
}
