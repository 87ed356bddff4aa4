package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the analysis pipeline
type Metrics struct {
	// Pipeline metrics
	PipelineRuns *prometheus.CounterVec
	StageLatency *prometheus.HistogramVec

	// LLM request metrics
	RequestErrors  *prometheus.CounterVec
	RequestRetries prometheus.Counter
	TokensUsed     *prometheus.CounterVec

	// Memory store occupancy
	MemoryTopics     prometheus.Gauge
	MemoryBackground prometheus.Gauge

	// Backpressure
	QueueRejections prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Pipeline runs by outcome (counter - only goes up)
		PipelineRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapsolve_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome kind",
		}, []string{"kind"}), // kind: "non_question", "answered", "failed"

		// Per-stage request latency
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapsolve_stage_request_duration_seconds",
			Help:    "LLM request latency in seconds by pipeline stage",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 90, 120}, // up to the reasoning-tier timeout
		}, []string{"stage"}),

		// Failed request attempts by classification
		RequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapsolve_request_errors_total",
			Help: "Total number of failed LLM request attempts by error kind",
		}, []string{"kind"}),

		// Retried attempts across all stages
		RequestRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapsolve_request_retries_total",
			Help: "Total number of retried LLM request attempts",
		}),

		// Token usage reported by the answering model
		TokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapsolve_tokens_used_total",
			Help: "Total tokens reported by the LLM endpoint by type",
		}, []string{"type"}), // type: "prompt" or "completion"

		MemoryTopics: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snapsolve_memory_active_topics",
			Help: "Number of topics currently retained in the memory store",
		}),

		MemoryBackground: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snapsolve_memory_background_facts",
			Help: "Number of background facts accumulated in the memory store",
		}),

		QueueRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapsolve_analyze_rejections_total",
			Help: "Total number of analyze requests rejected because the pipeline was busy",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordRun records a completed pipeline run by outcome kind
func (m *Metrics) RecordRun(kind string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(kind).Inc()
}

// RecordStageLatency records one request attempt's latency for a stage
func (m *Metrics) RecordStageLatency(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordRequestError records a failed request attempt
func (m *Metrics) RecordRequestError(kind string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(kind).Inc()
}

// RecordRetry records a retried request attempt
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.RequestRetries.Inc()
}

// RecordUsage records token usage from a completion response
func (m *Metrics) RecordUsage(promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.TokensUsed.WithLabelValues("prompt").Add(float64(promptTokens))
	m.TokensUsed.WithLabelValues("completion").Add(float64(completionTokens))
}

// RecordMemorySizes refreshes the memory store gauges
func (m *Metrics) RecordMemorySizes(topics, background int) {
	if m == nil {
		return
	}
	m.MemoryTopics.Set(float64(topics))
	m.MemoryBackground.Set(float64(background))
}

// RecordQueueRejection records an analyze request rejected under backpressure
func (m *Metrics) RecordQueueRejection() {
	if m == nil {
		return
	}
	m.QueueRejections.Inc()
}
