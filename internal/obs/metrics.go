package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus collectors every session
// reports into. A session never owns its own collector set: promauto
// registers each metric name exactly once against the default registry,
// so a second registration with the same name panics.
type Metrics struct {
	VectorInserts prometheus.Counter
	VectorDeletes prometheus.Counter
	SearchQueries prometheus.Counter
	SearchErrors  prometheus.Counter
	SearchLatency prometheus.Histogram
	Migrations    prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		VectorInserts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "corevdb_vector_inserts_total",
			Help: "Total vectors inserted across all sessions.",
		}),
		VectorDeletes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "corevdb_vector_deletes_total",
			Help: "Total vectors soft-deleted across all sessions.",
		}),
		SearchQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "corevdb_search_queries_total",
			Help: "Total search calls across all sessions.",
		}),
		SearchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "corevdb_search_errors_total",
			Help: "Total search calls that returned an error.",
		}),
		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "corevdb_search_latency_seconds",
			Help: "Search call latency in seconds.",
		}),
		Migrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "corevdb_ivf_migrations_total",
			Help: "Total vectors migrated from HNSW to IVF.",
		}),
	}
}

var processMetrics = sync.OnceValue(newMetrics)

// ProcessMetrics returns the shared collector set every session in this
// process reports into.
func ProcessMetrics() *Metrics { return processMetrics() }
