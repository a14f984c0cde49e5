package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal               *prometheus.CounterVec
	TrackedIdentifiers        prometheus.Gauge
	CleanupRunsTotal          *prometheus.CounterVec
	CleanupIdentifiersRemoved prometheus.Counter
	CleanupDurationSeconds    prometheus.Histogram
}

// New registers the rate limit metrics with reg. Pass nil to use the default
// registerer; tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_ratelimit_checks_total",
			Help: "Rate limit checks by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		TrackedIdentifiers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_ratelimit_tracked_identifiers",
			Help: "Identifiers currently held in the sliding window map",
		}),
		CleanupRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_ratelimit_cleanup_runs_total",
			Help: "Total number of limiter sweeps",
		}, []string{"status"}),
		CleanupIdentifiersRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_ratelimit_cleanup_identifiers_removed_total",
			Help: "Identifiers dropped by the limiter sweep",
		}),
		CleanupDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "storefront_ratelimit_cleanup_duration_seconds",
			Help: "Duration of limiter sweeps in seconds",
		}),
	}
}

func (m *Metrics) ObserveCheck(endpoint string, limited bool) {
	outcome := "allowed"
	if limited {
		outcome = "limited"
	}
	m.ChecksTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) SetTrackedIdentifiers(count int) {
	m.TrackedIdentifiers.Set(float64(count))
}

func (m *Metrics) ObserveCleanup(status string, removed int, durationSeconds float64) {
	m.CleanupRunsTotal.WithLabelValues(status).Inc()
	m.CleanupIdentifiersRemoved.Add(float64(removed))
	m.CleanupDurationSeconds.Observe(durationSeconds)
}
