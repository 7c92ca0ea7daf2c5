// Package metrics declares the prometheus collectors shared by the cache,
// the spatial store and the eligibility engine.  They register with the
// default registry, which the server exposes on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts cache reads by result: hit, miss or error.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localmarket",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Cache reads by result.",
	}, []string{"result"})

	CacheWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "localmarket",
		Subsystem: "cache",
		Name:      "write_failures_total",
		Help:      "Cache writes and invalidations that failed.",
	})

	SpatialQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "localmarket",
		Subsystem: "spatial",
		Name:      "query_duration_seconds",
		Help:      "Latency of spatial store queries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	SpatialQueryRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localmarket",
		Subsystem: "spatial",
		Name:      "retries_total",
		Help:      "Spatial query attempts beyond the first.",
	}, []string{"kind"})

	EligibilityChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localmarket",
		Subsystem: "delivery",
		Name:      "eligibility_checks_total",
		Help:      "Delivery eligibility checks by resulting status.",
	}, []string{"status"})

	InvalidationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localmarket",
		Subsystem: "cache",
		Name:      "invalidation_events_total",
		Help:      "Entity change events applied to the cache.",
	}, []string{"entity"})
)
