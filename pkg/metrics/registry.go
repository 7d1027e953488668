// Package metrics is the Prometheus-backed observability surface for
// reconciliation, apply, and the recording stream. Every recorder here is
// nil-safe: a nil *ReconcileMetrics, *ExecutorMetrics or *RecorderMetrics
// (what the constructors return while metrics are disabled) absorbs calls
// without allocating, so callers never need to branch on whether metrics
// are enabled.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.Mutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry turns metrics collection on and creates the registry the
// New*Metrics constructors register with. Safe to call more than once; later calls are no-ops.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		return
	}
	registry = prometheus.NewRegistry()
	enabled = true
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// Handler returns the HTTP handler serving the registry in the
// Prometheus exposition format, or nil if metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
