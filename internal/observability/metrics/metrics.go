package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogapi_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalogapi_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogapi_cache_hits_total",
		Help: "Cache hits by entity kind",
	}, []string{"kind"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogapi_cache_misses_total",
		Help: "Cache misses by entity kind",
	}, []string{"kind"})

	cacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogapi_cache_invalidations_total",
		Help: "Entries removed by tag invalidation",
	}, []string{"tag"})

	cacheStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogapi_cache_store_errors_total",
		Help: "Cache store failures by operation; reads fail open",
	}, []string{"op"})

	janitorPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogapi_cache_janitor_pruned_total",
		Help: "Dead tag-set members removed by the janitor",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveCacheHit counts a cache hit for an entity kind.
func ObserveCacheHit(kind string) {
	cacheHits.WithLabelValues(kind).Inc()
}

// ObserveCacheMiss counts a cache miss for an entity kind.
func ObserveCacheMiss(kind string) {
	cacheMisses.WithLabelValues(kind).Inc()
}

// ObserveCacheInvalidation counts entries removed under a tag.
func ObserveCacheInvalidation(tag string, removed int64) {
	if removed < 0 {
		removed = 0
	}
	cacheInvalidations.WithLabelValues(tag).Add(float64(removed))
}

// ObserveCacheStoreError counts a failed cache store operation.
func ObserveCacheStoreError(op string) {
	cacheStoreErrors.WithLabelValues(op).Inc()
}

// ObserveJanitorPruned counts tag-set members pruned in the background.
func ObserveJanitorPruned(count int64) {
	if count > 0 {
		janitorPruned.Add(float64(count))
	}
}
