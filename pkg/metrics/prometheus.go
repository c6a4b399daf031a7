// Package metrics provides Prometheus metrics for the performance console.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ingest
	observationsIngested  prometheus.Counter
	observationsDuplicate prometheus.Counter
	observationsRejected  *prometheus.CounterVec
	invalidMetricValues   *prometheus.CounterVec

	// Snapshot / engine
	snapshotObservations prometheus.Gauge
	athletesTotal        prometheus.Gauge
	engineLatency        *prometheus.HistogramVec
	emptySnapshotReads   prometheus.Counter

	// Store
	storeAppendLatency   prometheus.Histogram
	storeSnapshotLatency prometheus.Histogram
	storeErrors          *prometheus.CounterVec

	// Queue
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError *prometheus.CounterVec

	// Worker
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByType        *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record*/Update* helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics must exist before any component records
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "perfconsole",
		subsystem:        "stats",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	m.observationsIngested = m.counter("observations_ingested_total", "Observations appended to the store")
	m.observationsDuplicate = m.counter("observations_duplicate_total", "Observations dropped as duplicates")
	m.observationsRejected = m.counterVec("observations_rejected_total", "Observations rejected before queueing", "reason")
	m.invalidMetricValues = m.counterVec("invalid_metric_values_total", "Metric cells that failed numeric coercion", "metric")

	m.snapshotObservations = m.gauge("snapshot_observations", "Observations in the current snapshot")
	m.athletesTotal = m.gauge("athletes_total", "Distinct athletes in the current snapshot")
	m.engineLatency = m.histogramVec("engine_latency_milliseconds", "Statistics computation latency", "operation")
	m.emptySnapshotReads = m.counter("empty_snapshot_reads_total", "Reads served from an empty snapshot")

	m.storeAppendLatency = m.histogram("store_append_latency_milliseconds", "Store append latency", m.histogramBuckets)
	m.storeSnapshotLatency = m.histogram("store_snapshot_latency_milliseconds", "Store snapshot build latency", m.histogramBuckets)
	m.storeErrors = m.counterVec("store_errors_total", "Store failures by operation", "operation")

	m.queueSize = m.gauge("queue_size", "Current ingest queue length")
	m.queueCapacity = m.gauge("queue_capacity", "Ingest queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue length / capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Observations enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Observations dequeued")
	m.queueEnqueueError = m.counterVec("queue_enqueue_errors_total", "Enqueue failures by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Ingest workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-observation worker latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Worker failures")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "HTTP errors by type", "error_type", "severity")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Ingest.

// RecordObservationIngested counts an observation written to the store.
func RecordObservationIngested() {
	if globalManager.enabled {
		globalManager.observationsIngested.Inc()
	}
}

// RecordObservationDuplicate counts an observation dropped by dedupe.
func RecordObservationDuplicate() {
	if globalManager.enabled {
		globalManager.observationsDuplicate.Inc()
	}
}

// RecordObservationRejected counts an observation refused before queueing.
func RecordObservationRejected(reason string) {
	if globalManager.enabled {
		globalManager.observationsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordInvalidMetricValue counts a cell that failed numeric coercion.
func RecordInvalidMetricValue(metric string) {
	if globalManager.enabled {
		globalManager.invalidMetricValues.WithLabelValues(metric).Inc()
	}
}

// Snapshot / engine.

// UpdateSnapshotSize publishes the size of the latest snapshot.
func UpdateSnapshotSize(observations, athletes int) {
	if globalManager.enabled {
		globalManager.snapshotObservations.Set(float64(observations))
		globalManager.athletesTotal.Set(float64(athletes))
	}
}

// RecordEngineLatency observes one engine computation.
func RecordEngineLatency(operation string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.engineLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// RecordEmptySnapshotRead counts a read answered with the empty state.
func RecordEmptySnapshotRead() {
	if globalManager.enabled {
		globalManager.emptySnapshotReads.Inc()
	}
}

// Store.

// RecordStoreAppendLatency observes a store append.
func RecordStoreAppendLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeAppendLatency.Observe(latencyMs)
	}
}

// RecordStoreSnapshotLatency observes a snapshot build.
func RecordStoreSnapshotLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeSnapshotLatency.Observe(latencyMs)
	}
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(operation).Inc()
	}
}

// Queue.

// UpdateQueueSize sets the queue length and utilization.
func UpdateQueueSize(size, capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError(reason string) {
	if globalManager.enabled {
		globalManager.queueEnqueueError.WithLabelValues(reason).Inc()
	}
}

// Worker.

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency observes one processed observation.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError counts a worker failure.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// HTTP.

// RecordHTTPRequest records one request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response by endpoint and by type.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// System.

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes the average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// Configure applies runtime options to the global manager: recording on or
// off and the refresh interval. Options that shape collectors only take
// effect in NewManager. Call it before any component starts recording.
func Configure(opts ...Option) {
	for _, opt := range opts {
		opt(globalManager)
	}
}

// Enabled reports whether the global manager records.
func Enabled() bool { return globalManager.Enabled() }

// RefreshInterval is how often the global gauges should be refreshed.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the registry backing /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Since converts a start time to elapsed milliseconds for the Record* helpers.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
