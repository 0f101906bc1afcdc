// Package observability holds the crawl-level Prometheus instruments.
// Init wires them into the registry owned by the metrics package;
// before Init every helper is a no-op, so library code can record
// freely without caring whether metrics are enabled.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the lookup and fetch counters.
const (
	OutcomeOK          = "ok"
	OutcomeZeroResults = "zero_results"
	OutcomeOther       = "other"
	OutcomeError       = "error"
)

var (
	lookupsTotal           *prometheus.CounterVec
	fetchesTotal           *prometheus.CounterVec
	cacheResults           *prometheus.CounterVec
	upstreamLatencySeconds *prometheus.HistogramVec
	panoramasIndexed       prometheus.Counter
	filesWritten           prometheus.Counter
)

func Init(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	f := promauto.With(reg)

	lookupsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetview_lookups_total",
			Help: "Metadata lookups by outcome.",
		},
		[]string{"outcome"},
	)
	fetchesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetview_fetches_total",
			Help: "Image fetches by outcome.",
		},
		[]string{"outcome"},
	)
	cacheResults = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_cache_results_total",
			Help: "Resolver memo results by outcome.",
		},
		[]string{"outcome"},
	)
	upstreamLatencySeconds = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"upstream"},
	)
	panoramasIndexed = f.NewCounter(
		prometheus.CounterOpts{
			Name: "panoramas_indexed_total",
			Help: "Panoramas written to the index.",
		},
	)
	filesWritten = f.NewCounter(
		prometheus.CounterOpts{
			Name: "panorama_files_written_total",
			Help: "Image files persisted to disk.",
		},
	)
}

func IncLookup(outcome string) {
	if lookupsTotal == nil {
		return
	}
	lookupsTotal.WithLabelValues(outcome).Inc()
}

func IncFetch(outcome string) {
	if fetchesTotal == nil {
		return
	}
	fetchesTotal.WithLabelValues(outcome).Inc()
}

func IncCacheHit() {
	if cacheResults == nil {
		return
	}
	cacheResults.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	if cacheResults == nil {
		return
	}
	cacheResults.WithLabelValues("miss").Inc()
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	if upstreamLatencySeconds == nil {
		return
	}
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func IncPanoramaIndexed() {
	if panoramasIndexed == nil {
		return
	}
	panoramasIndexed.Inc()
}

func AddFilesWritten(n int) {
	if filesWritten == nil || n <= 0 {
		return
	}
	filesWritten.Add(float64(n))
}
