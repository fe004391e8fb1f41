// Package observability exposes Prometheus instrumentation for the HTTP
// layer, database calls, cache effectiveness, and widget domain operations.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service registers. A nil *Metrics is
// valid and turns all recording helpers into no-ops, so packages can take it
// as an optional dependency.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeRequests      prometheus.Gauge

	dbQueriesTotal  *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec

	cacheHitsTotal         *prometheus.CounterVec
	cacheMissesTotal       *prometheus.CounterVec
	cacheOperationDuration *prometheus.HistogramVec

	widgetOperationsTotal *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed.",
		}, []string{"method", "endpoint", "status_code"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "HTTP requests currently in flight.",
		}),

		dbQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total database queries issued.",
		}, []string{"operation", "collection"}),

		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation", "collection"}),

		cacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Cache lookups answered from Redis.",
		}, []string{"key_prefix"}),

		cacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Cache lookups that fell through to the database.",
		}, []string{"key_prefix"}),

		cacheOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Cache operation latency in seconds.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"operation"}),

		widgetOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "widget_operations_total",
			Help: "Widget domain operations by type.",
		}, []string{"operation"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.activeRequests,
		m.dbQueriesTotal,
		m.dbQueryDuration,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.cacheOperationDuration,
		m.widgetOperationsTotal,
	)

	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments every request with count, latency, and in-flight
// gauges. The endpoint label uses the chi route pattern, not the raw path,
// to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.activeRequests.Inc()
		defer m.activeRequests.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := routePattern(r)
		m.httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(ww.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// RecordDBQuery counts one query against a table and observes its latency.
func (m *Metrics) RecordDBQuery(operation, collection string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueriesTotal.WithLabelValues(operation, collection).Inc()
	m.dbQueryDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}

// RecordCacheHit counts a lookup served from cache, labeled by key prefix.
func (m *Metrics) RecordCacheHit(keyPrefix string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(keyPrefix).Inc()
}

// RecordCacheMiss counts a lookup that fell through to the database.
func (m *Metrics) RecordCacheMiss(keyPrefix string) {
	if m == nil {
		return
	}
	m.cacheMissesTotal.WithLabelValues(keyPrefix).Inc()
}

// RecordCacheOperation observes the latency of a cache backend call.
func (m *Metrics) RecordCacheOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordWidgetOperation counts one domain operation (create, update, delete).
func (m *Metrics) RecordWidgetOperation(operation string) {
	if m == nil {
		return
	}
	m.widgetOperationsTotal.WithLabelValues(operation).Inc()
}
