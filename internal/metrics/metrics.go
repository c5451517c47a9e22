// Package metrics holds the Prometheus collectors shared by the data sources,
// the memo caches and the page builders.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultats_source_fetches_total",
			Help: "Tab fetches performed against a data source, by source kind and outcome.",
		},
		[]string{"source", "status"},
	)
	fetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultats_source_retries_total",
			Help: "Retried fetch attempts, by source kind.",
		},
		[]string{"source"},
	)
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resultats_cache_lookups_total",
			Help: "Memo cache lookups, by cache name and result (hit or miss).",
		},
		[]string{"cache", "result"},
	)
	passDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resultats_page_build_duration_seconds",
			Help:    "Time spent building one page render pass.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"page", "status"},
	)
)

// RecordFetch counts one fetch attempt outcome.
func RecordFetch(source string, err error) {
	fetches.WithLabelValues(source, status(err)).Inc()
}

// RecordRetry counts one retried attempt.
func RecordRetry(source string) {
	fetchRetries.WithLabelValues(source).Inc()
}

// RecordCacheLookup counts a memo hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

// ObservePass records how long a page build took.
func ObservePass(page string, d time.Duration, err error) {
	passDuration.WithLabelValues(page, status(err)).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
