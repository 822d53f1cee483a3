package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service. Each collector
// owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	Normalizations *prometheus.CounterVec
	CatalogReloads *prometheus.CounterVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a collector with the given namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		UpstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Total number of calls to the upstream analysis service",
			},
			[]string{"operation", "status"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_call_duration_seconds",
				Help:      "Upstream call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
		Normalizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalizations_total",
				Help:      "Graph normalizations by detected payload shape",
			},
			[]string{"shape"},
		),
		CatalogReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Use case catalog reloads",
			},
			[]string{"status"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_cache_hits_total",
				Help:      "Total number of response file cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_cache_misses_total",
				Help:      "Total number of response file cache misses",
			},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.UpstreamCalls,
		c.UpstreamDuration,
		c.Normalizations,
		c.CatalogReloads,
		c.CacheHits,
		c.CacheMisses,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordUpstreamCall(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.UpstreamCalls.WithLabelValues(operation, status).Inc()
	c.UpstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordNormalization(shape string) {
	c.Normalizations.WithLabelValues(shape).Inc()
}

func (c *Collector) RecordCatalogReload(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.CatalogReloads.WithLabelValues(status).Inc()
}

func (c *Collector) RecordCacheHit()  { c.CacheHits.Inc() }
func (c *Collector) RecordCacheMiss() { c.CacheMisses.Inc() }
