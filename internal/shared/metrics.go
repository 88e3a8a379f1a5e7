package shared

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store operation kinds used as metric label values. The label shape for a
// given instrument must stay identical across call sites so each logical
// metric remains a single queryable series.
const (
	StoreOpInsert = "INSERT"
	StoreOpSelect = "SELECT"
	StoreOpUpdate = "UPDATE"
	StoreOpDelete = "DELETE"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AppMetrics is the process-wide instrument registry. It is constructed once
// at startup against an injected Registerer and shared by reference; all
// recording paths are safe under concurrent use.
type AppMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec

	storeOperations *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec
	usersCreated    prometheus.Counter
	activeUsers     prometheus.Gauge
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

func NewAppMetrics(registry prometheus.Registerer) *AppMetrics {
	metrics := &AppMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "Total number of failed HTTP requests",
			},
			[]string{"status_code", "error_type"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		storeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_operations_total",
				Help: "Total number of record store operations",
			},
			[]string{"operation", "status"},
		),
		storeOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_operation_duration_seconds",
				Help:    "Duration of record store operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		usersCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "users_created_total",
				Help: "Total number of users created",
			},
		),
		activeUsers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "users_active",
				Help: "Number of active (non-deleted) users",
			},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_prefix"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_prefix"},
		),
	}

	registry.MustRegister(
		metrics.requestDuration,
		metrics.requestTotal,
		metrics.errorTotal,
		metrics.rateLimited,
		metrics.storeOperations,
		metrics.storeOpDuration,
		metrics.usersCreated,
		metrics.activeUsers,
		metrics.cacheHits,
		metrics.cacheMisses,
	)

	return metrics
}

func (m *AppMetrics) RecordRequest(ctx context.Context, method, route, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, status).Inc()
}

func (m *AppMetrics) RecordError(ctx context.Context, statusCode, errorType string) {
	m.errorTotal.WithLabelValues(statusCode, errorType).Inc()
}

func (m *AppMetrics) RecordRateLimited(ctx context.Context, route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

// RecordStoreOperation records one store call. The duration covers only the
// underlying store round-trip, never the cache.
func (m *AppMetrics) RecordStoreOperation(ctx context.Context, operation, status string, duration time.Duration) {
	m.storeOperations.WithLabelValues(operation, status).Inc()
	m.storeOpDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

func (m *AppMetrics) RecordUserCreated(ctx context.Context) {
	m.usersCreated.Inc()
	m.activeUsers.Inc()
}

func (m *AppMetrics) RecordUserDeleted(ctx context.Context) {
	m.activeUsers.Dec()
}

func (m *AppMetrics) RecordCacheHit(ctx context.Context, keyPrefix string) {
	m.cacheHits.WithLabelValues(keyPrefix).Inc()
}

func (m *AppMetrics) RecordCacheMiss(ctx context.Context, keyPrefix string) {
	m.cacheMisses.WithLabelValues(keyPrefix).Inc()
}
