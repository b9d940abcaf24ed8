package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stfu_active_sessions",
		Help: "Number of running capture sessions",
	})

	sessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stfu_session_duration_seconds",
		Help:    "Duration of capture sessions in seconds",
		Buckets: []float64{10, 30, 60, 300, 900, 1800, 3600},
	}, []string{"mode"})

	// Polling window metrics
	windowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stfu_windows_total",
		Help: "Recording windows processed, by outcome",
	}, []string{"outcome"})

	// STT metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stfu_stt_requests_total",
		Help: "Total number of STT requests",
	}, []string{"provider", "status"})

	sttLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stfu_stt_latency_seconds",
		Help:    "STT request latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"provider"})

	// Transcript metrics
	entriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stfu_transcript_entries_total",
		Help: "Transcript entries recorded, by kind",
	}, []string{"kind"})

	// Conversation metrics
	conversationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stfu_conversation_events_total",
		Help: "Inbound conversation messages, by type",
	}, []string{"type"})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stfu_alerts_total",
		Help: "Alert notifications sent, by status",
	}, []string{"status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stfu_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stfu_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stfu_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stfu_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "captured", "uploaded", "sent", "received", "discarded"
)

// RunMetrics tracks metrics for a single session run
type RunMetrics struct {
	mode      string
	startTime time.Time
	ended     bool
	mu        sync.Mutex
}

// NewRunMetrics creates a new metrics tracker for a run in the given mode
func NewRunMetrics(mode string) *RunMetrics {
	return &RunMetrics{
		mode:      mode,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session
func (m *RunMetrics) RecordSessionStart() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
	activeSessions.Inc()
}

// RecordSessionEnd records the end of a session. Only the first call counts.
func (m *RunMetrics) RecordSessionEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ended {
		return
	}
	m.ended = true
	activeSessions.Dec()
	sessionDuration.WithLabelValues(m.mode).Observe(time.Since(m.startTime).Seconds())
}

// RecordWindow records the outcome of one polling window
func (m *RunMetrics) RecordWindow(outcome string) {
	windowsTotal.WithLabelValues(outcome).Inc()
}

// RecordEntry records a transcript entry of the given kind
func (m *RunMetrics) RecordEntry(kind string) {
	entriesTotal.WithLabelValues(kind).Inc()
}

// RecordEvent records an inbound conversation message type
func (m *RunMetrics) RecordEvent(eventType string) {
	conversationEvents.WithLabelValues(eventType).Inc()
}

// RecordAlert records an alert delivery attempt
func (m *RunMetrics) RecordAlert(success bool) {
	alertsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordError records an error
func (m *RunMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *RunMetrics) RecordAudioBytes(direction string, bytes int64) {
	RecordAudioBytes(direction, bytes)
}

// RecordAudioBytes records audio bytes processed outside a run tracker
func RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// ObserveSTTRequest records one transcription request and its latency
func ObserveSTTRequest(provider string, success bool, latency time.Duration) {
	sttLatency.WithLabelValues(provider).Observe(latency.Seconds())
	sttRequests.WithLabelValues(provider, statusLabel(success)).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
