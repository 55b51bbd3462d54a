// Package metrics provides Prometheus metrics for the perfectlap service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyBuckets are milliseconds; provider round trips dominate the tail.
var latencyBuckets = []float64{0.5, 1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Analysis metrics
	analyses        *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec

	// Session data metrics
	sessionLoads       *prometheus.CounterVec
	sessionLoadLatency prometheus.Histogram
	memoizedSessions   prometheus.Gauge
	providerRequests   *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec

	// Response cache metrics
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	cacheEntries   prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "perfectlap",
		subsystem:        "analysis",
		histogramBuckets: latencyBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.analyses = auto.NewCounterVec(
		m.counterOpts("analyses_total", "Total number of lap analyses by operation and outcome"),
		[]string{"operation", "outcome"},
	)
	m.analysisLatency = auto.NewHistogramVec(
		m.histogramOpts("analysis_latency_milliseconds", "End-to-end analysis latency in milliseconds, including session loading"),
		[]string{"operation"},
	)

	m.sessionLoads = auto.NewCounterVec(
		m.counterOpts("session_loads_total", "Total number of lap table loads by source"),
		[]string{"source"},
	)
	m.sessionLoadLatency = auto.NewHistogram(
		m.histogramOpts("session_load_latency_milliseconds", "Latency of loading a session lap table in milliseconds"),
	)
	m.memoizedSessions = auto.NewGauge(
		m.gaugeOpts("memoized_sessions", "Number of session handles kept in memory"),
	)
	m.providerRequests = auto.NewCounterVec(
		m.counterOpts("provider_requests_total", "Total number of session-data provider requests by endpoint and outcome"),
		[]string{"endpoint", "outcome"},
	)
	m.providerLatency = auto.NewHistogramVec(
		m.histogramOpts("provider_latency_milliseconds", "Session-data provider request latency in milliseconds"),
		[]string{"endpoint"},
	)

	m.cacheHits = auto.NewCounter(m.counterOpts("cache_hits_total", "Total number of response cache hits"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("cache_misses_total", "Total number of response cache misses"))
	m.cacheEvictions = auto.NewCounter(m.counterOpts("cache_evictions_total", "Total number of response cache evictions"))
	m.cacheEntries = auto.NewGauge(m.gaugeOpts("cache_entries", "Current number of response cache entries"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Allocated heap memory in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Current number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause time in milliseconds"))
}

// Analysis Metrics Functions.

// RecordAnalysis counts one analysis with its outcome ("ok" or an error kind).
func RecordAnalysis(operation, outcome string) {
	globalManager.analyses.WithLabelValues(operation, outcome).Inc()
}

// RecordAnalysisLatency records analysis latency.
func RecordAnalysisLatency(operation string, latencyMs float64) {
	globalManager.analysisLatency.WithLabelValues(operation).Observe(latencyMs)
}

// Session Metrics Functions.

// RecordSessionLoad counts a lap table load; source is "memo" or "provider".
func RecordSessionLoad(source string) {
	globalManager.sessionLoads.WithLabelValues(source).Inc()
}

// RecordSessionLoadLatency records how long loading a lap table took.
func RecordSessionLoadLatency(latencyMs float64) {
	globalManager.sessionLoadLatency.Observe(latencyMs)
}

// UpdateMemoizedSessions sets the number of memoized session handles.
func UpdateMemoizedSessions(count int) {
	globalManager.memoizedSessions.Set(float64(count))
}

// RecordProviderRequest counts a provider request; outcome is "ok", "cache_hit" or "error".
func RecordProviderRequest(endpoint, outcome string) {
	globalManager.providerRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordProviderLatency records provider request latency.
func RecordProviderLatency(endpoint string, latencyMs float64) {
	globalManager.providerLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// Cache Metrics Functions.

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheEvictions adds n evicted entries.
func RecordCacheEvictions(n int) {
	globalManager.cacheEvictions.Add(float64(n))
}

// UpdateCacheEntries sets the current number of cache entries.
func UpdateCacheEntries(count int) {
	globalManager.cacheEntries.Set(float64(count))
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
