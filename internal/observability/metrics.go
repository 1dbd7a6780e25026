package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "safespot"

// Metrics holds the Prometheus collectors for the alerting pipeline.
type Metrics struct {
	FetchAttempts *prometheus.CounterVec   // labels: source, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: source

	Refreshes      *prometheus.CounterVec // labels: trigger={user,silent}, outcome={success,error,busy}
	Connected      prometheus.Gauge
	CurrentHazards *prometheus.GaugeVec // labels: feed={earthquakes,alerts}

	SnapshotSaveErrors prometheus.Counter
	SnapshotLoadMisses prometheus.Counter

	Notifications *prometheus.CounterVec // labels: sink, outcome={success,error,dropped}
}

// NewMetrics creates and registers all pipeline metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchAttempts,
		m.FetchDuration,
		m.Refreshes,
		m.Connected,
		m.CurrentHazards,
		m.SnapshotSaveErrors,
		m.SnapshotLoadMisses,
		m.Notifications,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Feed fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a feed fetch including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"source"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh cycles by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 when the last refresh reached both feeds, 0 when offline.",
		}),
		CurrentHazards: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_hazards",
			Help:      "Hazards in the committed snapshot by feed.",
		}, []string{"feed"}),
		SnapshotSaveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_save_errors_total",
			Help:      "Snapshot persist failures (swallowed).",
		}),
		SnapshotLoadMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_load_misses_total",
			Help:      "Snapshot loads that found nothing usable.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
}
