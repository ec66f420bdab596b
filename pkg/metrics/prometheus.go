// Package metrics provides Prometheus metrics for the podium leaderboard service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Intake
	submissionsAccepted prometheus.Counter
	submissionsRejected *prometheus.CounterVec
	idempotentReplays   prometheus.Counter

	// Evaluation
	evaluations      *prometheus.CounterVec
	gradingLatency   prometheus.Histogram
	pendingExpired   prometheus.Counter
	evaluationErrors prometheus.Counter

	// Ranking
	rankingLatency  prometheus.Histogram
	rankingRequests *prometheus.CounterVec

	// Store
	storeRecords       prometheus.Gauge
	storePending       prometheus.Gauge
	storeSnapshotVer   prometheus.Gauge
	storeWriteLatency  prometheus.Histogram
	journalWrites      *prometheus.CounterVec
	journalLatency     prometheus.Histogram
	quotaKeys          prometheus.Gauge
	quotaWaitLatency   prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue and workers
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueue      prometheus.Counter
	queueDequeue      prometheus.Counter
	queueEnqueueError prometheus.Counter
	workerCount       prometheus.Gauge
	workerLatency     prometheus.Histogram
	workerErrors      prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

var globalMu sync.RWMutex

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      map[string]string{},
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.submissionsAccepted = auto.NewCounter(m.counterOpts("submissions_accepted_total", "Submissions admitted under quota and stored"))
	m.submissionsRejected = auto.NewCounterVec(m.counterOpts("submissions_rejected_total", "Submissions rejected at intake by reason"), []string{"reason"})
	m.idempotentReplays = auto.NewCounter(m.counterOpts("submissions_idempotent_replays_total", "Uploads answered from the idempotency cache"))

	m.evaluations = auto.NewCounterVec(m.counterOpts("evaluations_total", "Recorded evaluation results by status"), []string{"status"})
	m.gradingLatency = auto.NewHistogram(m.histogramOpts("grading_latency_milliseconds", "Latency of the grading collaborator"))
	m.pendingExpired = auto.NewCounter(m.counterOpts("pending_expired_total", "Pending submissions failed by the expiry sweeper"))
	m.evaluationErrors = auto.NewCounter(m.counterOpts("grading_errors_total", "Grading collaborator failures"))

	m.rankingLatency = auto.NewHistogram(m.histogramOpts("ranking_latency_milliseconds", "Time to compute a ranking view"))
	m.rankingRequests = auto.NewCounterVec(m.counterOpts("ranking_requests_total", "Ranking computations by filter kind"), []string{"filter"})

	m.storeRecords = auto.NewGauge(m.gaugeOpts("store_records", "Submissions held by the store"))
	m.storePending = auto.NewGauge(m.gaugeOpts("store_pending_records", "Submissions still waiting for evaluation"))
	m.storeSnapshotVer = auto.NewGauge(m.gaugeOpts("store_snapshot_version", "Version of the latest published snapshot"))
	m.storeWriteLatency = auto.NewHistogram(m.histogramOpts("store_write_latency_milliseconds", "Store write latency including the journal"))
	m.journalWrites = auto.NewCounterVec(m.counterOpts("journal_writes_total", "Journal writes by operation and outcome"), []string{"op", "outcome"})
	m.journalLatency = auto.NewHistogram(m.histogramOpts("journal_latency_milliseconds", "Journal write latency"))
	m.quotaKeys = auto.NewGauge(m.gaugeOpts("quota_keys", "Distinct (participant, task) keys tracked by the quota guard"))
	m.quotaWaitLatency = auto.NewHistogram(m.histogramOpts("quota_wait_milliseconds", "Time spent waiting for a quota key"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Evaluation jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Evaluation queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Evaluation queue utilization (0-1)"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Evaluation jobs enqueued"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Evaluation jobs dequeued"))
	m.queueEnqueueError = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Evaluation jobs dropped on enqueue"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Evaluation workers running"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Evaluation job processing latency"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Evaluation jobs that ended in error"))

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Errors by type and severity"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

func current() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// SetGlobal replaces the manager used by the package-level recorders.
func SetGlobal(m *Manager) error {
	if m == nil {
		return ErrNilManager
	}
	globalMu.Lock()
	globalManager = m
	globalMu.Unlock()
	return nil
}

// Intake.

// RecordSubmissionAccepted increments the accepted submissions counter.
func RecordSubmissionAccepted() { current().submissionsAccepted.Inc() }

// RecordSubmissionRejected increments the rejected submissions counter for reason.
func RecordSubmissionRejected(reason string) {
	current().submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordIdempotentReplay counts uploads answered from the idempotency cache.
func RecordIdempotentReplay() { current().idempotentReplays.Inc() }

// Evaluation.

// RecordEvaluation counts a recorded evaluation result.
func RecordEvaluation(status string) { current().evaluations.WithLabelValues(status).Inc() }

// RecordGradingLatency records grading latency in milliseconds.
func RecordGradingLatency(latencyMs float64) { current().gradingLatency.Observe(latencyMs) }

// RecordGradingError counts grading collaborator failures.
func RecordGradingError() { current().evaluationErrors.Inc() }

// RecordPendingExpired counts submissions failed by the expiry sweeper.
func RecordPendingExpired(n int) { current().pendingExpired.Add(float64(n)) }

// Ranking.

// RecordRanking records a ranking computation.
func RecordRanking(filter string, latencyMs float64) {
	m := current()
	m.rankingRequests.WithLabelValues(filter).Inc()
	m.rankingLatency.Observe(latencyMs)
}

// Store.

// UpdateStoreRecords sets the store size gauges.
func UpdateStoreRecords(total, pending int) {
	m := current()
	m.storeRecords.Set(float64(total))
	m.storePending.Set(float64(pending))
}

// UpdateStoreSnapshotVersion sets the published snapshot version.
func UpdateStoreSnapshotVersion(version uint64) {
	current().storeSnapshotVer.Set(float64(version))
}

// RecordStoreWriteLatency records store write latency.
func RecordStoreWriteLatency(latencyMs float64) { current().storeWriteLatency.Observe(latencyMs) }

// RecordJournalWrite records a journal write outcome and latency.
func RecordJournalWrite(op, outcome string, latencyMs float64) {
	m := current()
	m.journalWrites.WithLabelValues(op, outcome).Inc()
	m.journalLatency.Observe(latencyMs)
}

// UpdateQuotaKeys sets the number of quota keys.
func UpdateQuotaKeys(count int) { current().quotaKeys.Set(float64(count)) }

// RecordQuotaWait records time spent waiting to enter a quota critical section.
func RecordQuotaWait(latencyMs float64) { current().quotaWaitLatency.Observe(latencyMs) }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	current().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	current().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue and workers.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { current().queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { current().queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { current().queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { current().queueEnqueue.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { current().queueDequeue.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { current().queueEnqueueError.Inc() }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { current().workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) { current().workerLatency.Observe(latencyMs) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { current().workerErrors.Inc() }

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	current().errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	current().errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	current().errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { current().systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { current().systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { current().systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
