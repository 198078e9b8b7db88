// Package metrics exposes Prometheus instruments for searches, backend calls
// and the response cache. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ontosearch"

// Metrics holds every instrument the engine records.
type Metrics struct {
	searches        *prometheus.CounterVec   // by operation, mode and outcome
	searchDuration  *prometheus.HistogramVec // by operation
	resultSize      prometheus.Histogram
	backendRequests *prometheus.CounterVec   // by endpoint and status code
	backendDuration *prometheus.HistogramVec // by endpoint
	cacheLookups    *prometheus.CounterVec   // by result: hit, miss, error
	cachePurged     prometheus.Counter
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total number of search operations",
		}, []string{"operation", "mode", "outcome"}),

		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		resultSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "result_size",
			Help:      "Number of hits returned by successful searches",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),

		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of term-lookup backend calls",
		}, []string{"endpoint", "status"}),

		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Term-lookup backend call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of response cache lookups",
		}, []string{"result"}),

		cachePurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "purged_entries_total",
			Help:      "Total number of expired cache entries purged",
		}),
	}

	collectors := []prometheus.Collector{
		m.searches,
		m.searchDuration,
		m.resultSize,
		m.backendRequests,
		m.backendDuration,
		m.cacheLookups,
		m.cachePurged,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordSearch records a finished search operation.
func (m *Metrics) RecordSearch(operation, mode string, success bool, hits int, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
		m.resultSize.Observe(float64(hits))
	}
	m.searches.WithLabelValues(operation, mode, outcome).Inc()
	m.searchDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBackend records a live call to the term-lookup backend.
func (m *Metrics) RecordBackend(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.backendDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheHit records a lookup answered by the cache.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a lookup the cache could not answer.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordCacheError records a failed cache read or write.
func (m *Metrics) RecordCacheError() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("error").Inc()
}

// RecordPurge records entries removed by the cache janitor.
func (m *Metrics) RecordPurge(removed int) {
	if m == nil {
		return
	}
	m.cachePurged.Add(float64(removed))
}
