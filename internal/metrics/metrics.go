package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomsheet",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	sheetsCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomsheet",
			Name:      "sheets_calls_total",
			Help:      "Google Sheets API calls by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	sheetsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roomsheet",
			Name:      "sheets_call_seconds",
			Help:      "Google Sheets API call latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	writeStages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomsheet",
			Name:      "write_stages_total",
			Help:      "Write pipeline stage transitions by operation kind.",
		},
		[]string{"operation", "stage"},
	)

	cacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomsheet",
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and invalidations by data kind.",
		},
		[]string{"kind", "event"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, sheetsCalls, sheetsLatency, writeStages, cacheEvents)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// ObserveSheetsCall records one Sheets API call with its duration.
func ObserveSheetsCall(kind string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	sheetsCalls.WithLabelValues(kind, outcome).Inc()
	sheetsLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// IncWriteStage counts a stage transition of the write pipeline.
func IncWriteStage(operation, stage string) {
	writeStages.WithLabelValues(operation, stage).Inc()
}

// IncCache counts a cache hit, miss or invalidation.
func IncCache(kind, event string) {
	cacheEvents.WithLabelValues(kind, event).Inc()
}
