// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "s2t_blockifier"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Job metrics
	JobsSubmitted *prometheus.CounterVec
	JobsInFlight  prometheus.Gauge
	StatusChecks  *prometheus.CounterVec
	JobOutcomes   *prometheus.CounterVec

	// Input metrics
	MimeRejected  *prometheus.CounterVec
	AudioUploaded prometheus.Counter

	// Provider metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec

	// Normalization metrics
	TagsEmitted          *prometheus.CounterVec
	NormalizeLatency     *prometheus.HistogramVec
	NormalizeFailures    *prometheus.CounterVec
	DocumentsInvalidated prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCCalls *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Job metrics
		JobsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total number of transcription jobs submitted",
		}, []string{"provider"}),
		JobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Number of submitted jobs that have not reached a terminal status",
		}),
		StatusChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_checks_total",
			Help:      "Total number of provider status checks by reported status",
		}, []string{"provider", "status"}),
		JobOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_outcomes_total",
			Help:      "Total number of terminal job outcomes",
		}, []string{"provider", "state"}),

		// Input metrics
		MimeRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mime_rejected_total",
			Help:      "Total number of requests rejected for an unsupported mime type",
		}, []string{"mime_type"}),
		AudioUploaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_uploaded_total",
			Help:      "Total audio bytes sent to providers",
		}),

		// Provider metrics
		STTLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Provider request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "operation"}),
		STTErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of provider errors",
		}, []string{"provider", "operation"}),

		// Normalization metrics
		TagsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tags_emitted_total",
			Help:      "Total number of tags emitted by kind",
		}, []string{"kind"}),
		NormalizeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "normalize_latency_seconds",
			Help:      "Time spent normalizing a completed response",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"provider"}),
		NormalizeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_failures_total",
			Help:      "Total number of completed responses that could not be normalized",
		}, []string{"provider"}),
		DocumentsInvalidated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_invalid_total",
			Help:      "Total number of documents rejected by the validator",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// gRPC metrics
		GRPCCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls by method and code",
		}, []string{"method", "code"}),
	}
}

// RecordSubmitted records a job accepted by a provider.
func (m *Metrics) RecordSubmitted(provider string) {
	m.JobsSubmitted.WithLabelValues(provider).Inc()
	m.JobsInFlight.Inc()
}

// RecordStatusCheck records one poll and the status it reported.
func (m *Metrics) RecordStatusCheck(provider, status string) {
	m.StatusChecks.WithLabelValues(provider, status).Inc()
}

// RecordOutcome records a terminal outcome. inFlight is true when the job
// was counted by RecordSubmitted.
func (m *Metrics) RecordOutcome(provider, state string, inFlight bool) {
	m.JobOutcomes.WithLabelValues(provider, state).Inc()
	if inFlight {
		m.JobsInFlight.Dec()
	}
}

// RecordMimeRejected records a request refused before upload.
func (m *Metrics) RecordMimeRejected(mimeType string) {
	m.MimeRejected.WithLabelValues(mimeType).Inc()
}

// RecordUpload records audio bytes sent to a provider.
func (m *Metrics) RecordUpload(bytes int) {
	m.AudioUploaded.Add(float64(bytes))
}

// RecordSTTCall records the latency of a provider call and counts it as an error when err is set.
func (m *Metrics) RecordSTTCall(provider, operation string, err error, latencySeconds float64) {
	m.STTLatency.WithLabelValues(provider, operation).Observe(latencySeconds)
	if err != nil {
		m.STTErrors.WithLabelValues(provider, operation).Inc()
	}
}

// RecordTags counts emitted tags by kind.
func (m *Metrics) RecordTags(counts map[string]int) {
	for kind, n := range counts {
		m.TagsEmitted.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordNormalize records the time spent normalizing a response.
func (m *Metrics) RecordNormalize(provider string, err error, latencySeconds float64) {
	m.NormalizeLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.NormalizeFailures.WithLabelValues(provider).Inc()
	}
}

// RecordInvalidDocument records a document the validator rejected.
func (m *Metrics) RecordInvalidDocument() {
	m.DocumentsInvalidated.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCCall records a completed gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
