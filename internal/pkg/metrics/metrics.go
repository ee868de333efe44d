package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sitescout",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sitescout",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Scout metrics
	ScoutRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "scout",
		Name:      "runs_total",
		Help:      "Total scout runs by outcome",
	}, []string{"status"})

	ScoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sitescout",
		Subsystem: "scout",
		Name:      "run_duration_seconds",
		Help:      "Duration of a full scout run",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	CategoryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "scout",
		Name:      "category_errors_total",
		Help:      "Total report sections that failed upstream",
	}, []string{"category"})

	FeaturesNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "normalize",
		Name:      "features_total",
		Help:      "Raw records seen by the normalizer by outcome (kept, filtered, no_geometry, duplicate)",
	}, []string{"category", "outcome"})

	VertexOnlyResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "normalize",
		Name:      "vertex_only_results_total",
		Help:      "Features resolved in degraded vertex-only mode",
	}, []string{"category"})

	// Upstream metrics
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Total upstream requests by source and outcome",
	}, []string{"source", "outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sitescout",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Duration of upstream requests including retries",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"source"})

	UpstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "upstream",
		Name:      "retries_total",
		Help:      "Total upstream request retries",
	}, []string{"source"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitescout",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitescout",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitescout",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitescout",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool statistics into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}

// RecordNormalize adds one batch outcome to the normalizer counters.
func RecordNormalize(category string, kept, filtered, noGeometry, duplicates int) {
	FeaturesNormalized.WithLabelValues(category, "kept").Add(float64(kept))
	FeaturesNormalized.WithLabelValues(category, "filtered").Add(float64(filtered))
	FeaturesNormalized.WithLabelValues(category, "no_geometry").Add(float64(noGeometry))
	FeaturesNormalized.WithLabelValues(category, "duplicate").Add(float64(duplicates))
}
