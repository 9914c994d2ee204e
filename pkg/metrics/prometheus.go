// Package metrics provides Prometheus metrics for the weather sync pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultLatencyBuckets covers sub-millisecond in-process deliveries up to slow broker confirms.
var defaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Publishing (phone side)
	publishTotal    *prometheus.CounterVec
	publishLatency  prometheus.Histogram
	syncRuns        *prometheus.CounterVec
	lastSyncUnix    prometheus.Gauge
	transportBuffer prometheus.Gauge

	// Receiving (watch side)
	deliveries       *prometheus.CounterVec
	snapshotsApplied prometheus.Counter
	decodeErrors     *prometheus.CounterVec
	unknownCodes     prometheus.Counter
	framesRendered   *prometheus.CounterVec
	watchVisible     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "sunwatch",
		subsystem:      "sync",
		latencyBuckets: defaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.publishTotal = auto.NewCounterVec(
		m.counterOpts("publish_total", "Snapshot publishes by path and outcome"),
		[]string{"path", "outcome"},
	)
	m.publishLatency = auto.NewHistogram(
		m.histogramOpts("publish_latency_milliseconds", "Time from publish to delivery result in milliseconds"),
	)
	m.syncRuns = auto.NewCounterVec(
		m.counterOpts("runs_total", "Producer sync runs by outcome"),
		[]string{"outcome"},
	)
	m.lastSyncUnix = auto.NewGauge(
		m.gaugeOpts("last_run_unix", "Unix timestamp of the last successful producer sync"),
	)
	m.transportBuffer = auto.NewGauge(
		m.gaugeOpts("transport_buffer_size", "Items waiting in the transport dispatch buffer"),
	)

	m.deliveries = auto.NewCounterVec(
		m.counterOpts("deliveries_total", "Items dispatched to subscribers by path"),
		[]string{"path"},
	)
	m.snapshotsApplied = auto.NewCounter(
		m.counterOpts("snapshots_applied_total", "Snapshots applied to the display state"),
	)
	m.decodeErrors = auto.NewCounterVec(
		m.counterOpts("decode_errors_total", "Snapshot fields that could not be decoded, by field"),
		[]string{"field"},
	)
	m.unknownCodes = auto.NewCounter(
		m.counterOpts("unknown_condition_codes_total", "Condition codes that resolved to the unknown icon"),
	)
	m.framesRendered = auto.NewCounterVec(
		m.counterOpts("frames_rendered_total", "Watch-face frames composed, by mode"),
		[]string{"mode"},
	)
	m.watchVisible = auto.NewGauge(
		m.gaugeOpts("watchface_visible", "1 while the watch face is visible"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status code"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and error type"),
		[]string{"component", "error_type"},
	)
}

// RecordPublish counts a publish outcome ("ok" or "failed") for a path.
func RecordPublish(path, outcome string) {
	globalManager.publishTotal.WithLabelValues(path, outcome).Inc()
}

// RecordPublishLatency records the time until a delivery result arrived.
func RecordPublishLatency(latencyMs float64) {
	globalManager.publishLatency.Observe(latencyMs)
}

// RecordSyncRun counts a producer sync run ("ok", "no_data", "failed").
func RecordSyncRun(outcome string) {
	globalManager.syncRuns.WithLabelValues(outcome).Inc()
}

// UpdateLastSync sets the timestamp of the last successful sync.
func UpdateLastSync(unix int64) {
	globalManager.lastSyncUnix.Set(float64(unix))
}

// UpdateTransportBuffer sets the number of items awaiting dispatch.
func UpdateTransportBuffer(size int) {
	globalManager.transportBuffer.Set(float64(size))
}

// RecordDelivery counts an item dispatched to subscribers.
func RecordDelivery(path string) {
	globalManager.deliveries.WithLabelValues(path).Inc()
}

// RecordSnapshotApplied counts a snapshot stored into the display state.
func RecordSnapshotApplied() {
	globalManager.snapshotsApplied.Inc()
}

// RecordDecodeError counts a snapshot field that failed to decode or format.
func RecordDecodeError(field string) {
	globalManager.decodeErrors.WithLabelValues(field).Inc()
}

// RecordUnknownConditionCode counts a code that fell through the icon table.
func RecordUnknownConditionCode() {
	globalManager.unknownCodes.Inc()
}

// RecordFrame counts a rendered frame ("interactive" or "ambient").
func RecordFrame(mode string) {
	globalManager.framesRendered.WithLabelValues(mode).Inc()
}

// UpdateWatchVisible records watch-face visibility.
func UpdateWatchVisible(visible bool) {
	v := 0.0
	if visible {
		v = 1
	}
	globalManager.watchVisible.Set(v)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
