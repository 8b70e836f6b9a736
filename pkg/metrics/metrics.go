package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Upstream fetch metrics
	FetchLatency     *prometheus.HistogramVec
	FetchFailures    *prometheus.CounterVec
	SnapshotReloads  prometheus.Counter
	SnapshotWarnings prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter

	// Join/query engine metrics
	JoinDuration    prometheus.Histogram
	JoinedRows      prometheus.Counter
	SentinelParents *prometheus.CounterVec
	QueryDuration   prometheus.Histogram

	// Existence probe metrics
	ProbesTotal  *prometheus.CounterVec
	ProbeLatency prometheus.Histogram

	// Mutation metrics
	Mutations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of upstream collection fetches",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"collection"}),
		FetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_failures_total",
			Help:      "Total number of failed collection fetches",
		}, []string{"collection"}),
		SnapshotReloads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshot_reloads_total",
			Help:      "Total number of full snapshot reloads",
		}),
		SnapshotWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshot_warnings_total",
			Help:      "Total number of degraded collections in snapshots",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshot_cache_hits_total",
			Help:      "Snapshot loads served from the TTL cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshot_cache_misses_total",
			Help:      "Snapshot loads that went to the upstream",
		}),

		JoinDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "join_duration_seconds",
			Help:      "Time spent building denormalized view rows",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		}),
		JoinedRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "joined_rows_total",
			Help:      "Total number of view rows produced",
		}),
		SentinelParents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sentinel_parents_total",
			Help:      "Joins that degraded to a sentinel parent",
		}, []string{"relation"}),
		QueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "query_duration_seconds",
			Help:      "Time spent filtering and paginating view rows",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),

		ProbesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "existence_probes_total",
			Help:      "Per-row existence probes by outcome",
		}, []string{"status"}),
		ProbeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "existence_probe_duration_seconds",
			Help:      "Duration of individual existence probes",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}),

		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mutations_total",
			Help:      "Record mutations by entity and outcome",
		}, []string{"entity", "operation", "status"}),
	}
}
