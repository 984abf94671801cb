package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/user/intel-pipeline/internal/domain"
)

// WorkerMetrics holds the Prometheus instrumentation for a consumer worker.
type WorkerMetrics struct {
	MessagesTotal     *prometheus.CounterVec
	BatchSize         prometheus.Histogram
	ProcessingLatency prometheus.Histogram
	QueueDepth        prometheus.Gauge
	HealthState       prometheus.Gauge
	PublishesDropped  prometheus.Counter
}

// NewWorkerMetrics initializes and registers worker metrics.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intel_pipeline",
			Subsystem: "worker",
			Name:      "messages_total",
			Help:      "Total number of consumed messages by outcome.",
		}, []string{"status"}), // status: processed, failed
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intel_pipeline",
			Subsystem: "worker",
			Name:      "batch_size",
			Help:      "Number of messages claimed per polling cycle.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		ProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intel_pipeline",
			Subsystem: "worker",
			Name:      "processing_latency_seconds",
			Help:      "End-to-end latency of one message through the pipeline.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "intel_pipeline",
			Subsystem: "worker",
			Name:      "queue_depth",
			Help:      "Current length of the ingest stream.",
		}),
		HealthState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "intel_pipeline",
			Subsystem: "worker",
			Name:      "health_state",
			Help:      "Worker health state (0 healthy, 1 degraded, 2 unhealthy).",
		}),
		PublishesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "intel_pipeline",
			Subsystem: "worker",
			Name:      "publishes_dropped_total",
			Help:      "Fanout publishes dropped because of errors or timeouts.",
		}),
	}
}

// SetHealthState maps the advisory health state onto the gauge.
func (m *WorkerMetrics) SetHealthState(state domain.HealthState) {
	switch state {
	case domain.HealthHealthy:
		m.HealthState.Set(0)
	case domain.HealthDegraded:
		m.HealthState.Set(1)
	case domain.HealthUnhealthy:
		m.HealthState.Set(2)
	}
}

// IngestMetrics holds the Prometheus instrumentation for the submit service.
type IngestMetrics struct {
	MessagesTotal     *prometheus.CounterVec
	BytesTotal        prometheus.Counter
	WALActive         prometheus.Gauge
	APIKeyCacheHits   prometheus.Counter
	APIKeyCacheMisses prometheus.Counter
}

// NewIngestMetrics initializes and registers submit-side metrics.
func NewIngestMetrics() *IngestMetrics {
	return &IngestMetrics{
		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intel_pipeline",
			Subsystem: "submit",
			Name:      "messages_total",
			Help:      "Total number of submitted messages by status.",
		}, []string{"status"}), // status: accepted, error_parse, error_size, error_enqueue
		BytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "intel_pipeline",
			Subsystem: "submit",
			Name:      "bytes_total",
			Help:      "Total number of payload bytes accepted.",
		}),
		WALActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "intel_pipeline",
			Subsystem: "submit",
			Name:      "wal_active_gauge",
			Help:      "Indicates if the write-ahead failover log is active (1 active, 0 inactive).",
		}),
		APIKeyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "intel_pipeline",
			Subsystem: "auth",
			Name:      "api_key_cache_hits_total",
			Help:      "Total number of API key cache hits.",
		}),
		APIKeyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "intel_pipeline",
			Subsystem: "auth",
			Name:      "api_key_cache_misses_total",
			Help:      "Total number of API key cache misses.",
		}),
	}
}
