package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gateway operation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Gateway metrics
	GatewayOperations *prometheus.CounterVec
	GatewayDuration   *prometheus.HistogramVec
	AnchorsReturned   *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry so several
// instances can coexist in tests.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	gatewayOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_operations_total",
			Help:      "Total number of anchor gateway operations",
		},
		[]string{"operation", "backend", "outcome"},
	)

	gatewayDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_operation_duration_seconds",
			Help:      "Anchor gateway operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "backend"},
	)

	anchorsReturned := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anchors_returned_total",
			Help:      "Total number of anchors returned by bulk lookups",
		},
		[]string{"operation", "backend"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		gatewayOperations,
		gatewayDuration,
		anchorsReturned,
	)

	return &Collector{
		registry:          registry,
		HTTPRequests:      httpRequests,
		HTTPDuration:      httpDuration,
		GatewayOperations: gatewayOperations,
		GatewayDuration:   gatewayDuration,
		AnchorsReturned:   anchorsReturned,
	}
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGatewayOperation records one gateway call and its outcome.
func (c *Collector) RecordGatewayOperation(operation, backend string, success bool, duration time.Duration) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	c.GatewayOperations.WithLabelValues(operation, backend, outcome).Inc()
	c.GatewayDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

// RecordAnchorsReturned counts anchors returned by a bulk lookup.
func (c *Collector) RecordAnchorsReturned(operation, backend string, n int) {
	c.AnchorsReturned.WithLabelValues(operation, backend).Add(float64(n))
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
