// Package metrics exposes the daemon's ambient Prometheus instrumentation:
// tick duration, preload/snapshot timing, repository error counts and alert
// state gauges. This is observability plumbing only — it does not expose the
// REST API surface the daemon's external collaborators handle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric the Main Loop and controllers report to.
// Construct one with NewRegistry and register it with prometheus once at
// startup.
type Registry struct {
	TickDuration     prometheus.Histogram
	PreloadDuration  prometheus.Histogram
	SnapshotDuration prometheus.Histogram
	RepositoryErrors *prometheus.CounterVec
	AlertState       *prometheus.GaugeVec
	ActiveModeGauge  *prometheus.GaugeVec
}

// NewRegistry builds the metric collectors with a common "coolercontrold"
// namespace, mirroring the gauge/vec construction style of the reference
// Prometheus exporter in the examples.
func NewRegistry() *Registry {
	return &Registry{
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coolercontrold",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one full main loop tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		PreloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coolercontrold",
			Name:      "preload_duration_seconds",
			Help:      "Duration of the repository preload fan-out phase.",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coolercontrold",
			Name:      "snapshot_duration_seconds",
			Help:      "Duration of the repository snapshot phase.",
			Buckets:   prometheus.DefBuckets,
		}),
		RepositoryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coolercontrold",
			Name:      "repository_errors_total",
			Help:      "Count of repository errors by device kind and phase (preload, snapshot).",
		}, []string{"device_kind", "phase"}),
		AlertState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coolercontrold",
			Name:      "alert_state",
			Help:      "Current alert state, 0=inactive 1=active, by alert uid.",
		}, []string{"alert_uid"}),
		ActiveModeGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coolercontrold",
			Name:      "mode_active",
			Help:      "1 if the mode currently matches live settings, by mode uid.",
		}, []string{"mode_uid"}),
	}
}

// MustRegister registers every collector against the given registerer,
// panicking on duplicate registration the way the reference exporter does.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(r.TickDuration, r.PreloadDuration, r.SnapshotDuration, r.RepositoryErrors, r.AlertState, r.ActiveModeGauge)
}
