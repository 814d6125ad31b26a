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
		Namespace: "geopin",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geopin",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Session metrics
	MarkersCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geopin",
		Subsystem: "session",
		Name:      "markers_committed_total",
		Help:      "Total markers committed, whether or not they were persisted",
	})

	CapabilityFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geopin",
		Subsystem: "session",
		Name:      "capability_failures_total",
		Help:      "Total position and storage failures reported to the user",
	}, []string{"kind"})

	PositionFixDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geopin",
		Subsystem: "session",
		Name:      "position_fix_duration_seconds",
		Help:      "Time spent waiting for a position fix",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geopin",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of map display WebSocket connections",
	})

	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geopin",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Key-value store operations by backend, operation and result",
	}, []string{"backend", "op", "result"})
)

// ObserveStore records one key-value store operation.
func ObserveStore(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(backend, op, result).Inc()
}

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
