// Package metrics holds the prometheus instrumentation for the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheHits counts range requests served entirely from a cached prefix.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sieved_cache_hits_total",
			Help: "Range requests served from the cached prefix without extension",
		},
		[]string{"domain"},
	)

	// CacheRecomputes counts engine invocations, whether incremental
	// extensions or full rebuilds after eviction.
	CacheRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sieved_cache_recomputes_total",
			Help: "Sieve engine invocations per domain",
		},
		[]string{"domain"},
	)

	// CacheEvictions counts entries removed by TTL or cache ceilings.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sieved_cache_evictions_total",
			Help: "Cache entries evicted by TTL or capacity policy",
		},
	)

	// SnapshotLoads counts prefixes warm-started from the snapshot store.
	SnapshotLoads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sieved_snapshot_loads_total",
			Help: "Prefixes loaded from the snapshot store on first access",
		},
	)

	// ExtendDuration observes how long engine extensions take.
	ExtendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sieved_extend_duration_seconds",
			Help:    "Sieve extension latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"domain"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sieved_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sieved_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Handler exposes the prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// HTTPMiddleware records request counts and latency per route.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
