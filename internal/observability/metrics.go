package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crisis"

// Metrics holds the Prometheus counters, histograms, and gauges for aggregation.
type Metrics struct {
	// Per-source fetch metrics.
	SourceFetches       *prometheus.CounterVec   // labels: source, outcome={success,error,timeout,panic}
	SourceFetchDuration *prometheus.HistogramVec // labels: source
	SourceEvents        *prometheus.CounterVec   // labels: source
	SourceCache         *prometheus.CounterVec   // labels: source, result={hit,miss}

	// Aggregation metrics.
	Aggregations        *prometheus.CounterVec // labels: outcome={success,error}
	AggregationDuration prometheus.Histogram
	EventsMerged        prometheus.Counter
	SnapshotEvents      prometheus.Gauge

	// Publisher metrics.
	PublisherRunning prometheus.Gauge
	EventsPublished  prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourceFetches,
		m.SourceFetchDuration,
		m.SourceEvents,
		m.SourceCache,
		m.Aggregations,
		m.AggregationDuration,
		m.EventsMerged,
		m.SnapshotEvents,
		m.PublisherRunning,
		m.EventsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Source fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of a single source fetch including normalization.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		SourceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_events_total",
			Help:      "Normalized events contributed by each source.",
		}, []string{"source"}),
		SourceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      "Source cache lookups by source and result.",
		}, []string{"source", "result"}),
		Aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Aggregation runs by outcome.",
		}, []string{"outcome"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of a complete fetch, merge and sort cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
		EventsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_merged_total",
			Help:      "Events collapsed into another event with the same identity key.",
		}),
		SnapshotEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_events",
			Help:      "Number of events in the most recent snapshot.",
		}),
		PublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publisher_running",
			Help:      "1 when the snapshot publisher is active, 0 when shut down.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total events written to the snapshot topic.",
		}),
	}
}
