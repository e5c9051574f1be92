package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// fusion pipeline and streaming service.
type Metrics struct {
	ReadingsConsumed  prometheus.Counter
	ReadingsRejected  prometheus.Counter
	SnapshotsProduced prometheus.Counter
	ReportsProduced   prometheus.Counter
	TransformErrors   prometheus.Counter
	AnomaliesDetected prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	FusionDuration          prometheus.Histogram

	// Streaming buffer metrics.
	BufferOccupancy *prometheus.GaugeVec // label: sensor_type
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReadingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sensor_fusion",
			Name:      "readings_consumed_total",
			Help:      "Total readings read from the source topic.",
		}),
		ReadingsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sensor_fusion",
			Name:      "readings_rejected_total",
			Help:      "Total readings rejected as malformed or invalid.",
		}),
		SnapshotsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sensor_fusion",
			Name:      "snapshots_produced_total",
			Help:      "Total fused snapshots written to the snapshot topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sensor_fusion",
			Name:      "reports_produced_total",
			Help:      "Total fusion reports published.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sensor_fusion",
			Name:      "transform_errors_total",
			Help:      "Total transformation failures.",
		}),
		AnomaliesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sensor_fusion",
			Name:      "anomalies_detected_total",
			Help:      "Total readings flagged as anomalous in published reports.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sensor_fusion",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sensor_fusion",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sensor_fusion",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-ingest cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		FusionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sensor_fusion",
			Name:      "fusion_duration_seconds",
			Help:      "Duration of the windowed fusion step on ingest.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		BufferOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sensor_fusion",
			Name:      "buffer_occupancy",
			Help:      "Current number of buffered readings per sensor type.",
		}, []string{"sensor_type"}),
	}

	prometheus.MustRegister(
		m.ReadingsConsumed,
		m.ReadingsRejected,
		m.SnapshotsProduced,
		m.ReportsProduced,
		m.TransformErrors,
		m.AnomaliesDetected,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.FusionDuration,
		m.BufferOccupancy,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReadingsConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sensor_fusion", Name: "readings_consumed_total"}),
		ReadingsRejected:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sensor_fusion", Name: "readings_rejected_total"}),
		SnapshotsProduced:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sensor_fusion", Name: "snapshots_produced_total"}),
		ReportsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sensor_fusion", Name: "reports_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sensor_fusion", Name: "transform_errors_total"}),
		AnomaliesDetected:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sensor_fusion", Name: "anomalies_detected_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sensor_fusion", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sensor_fusion", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sensor_fusion", Name: "batch_processing_duration_seconds"}),
		FusionDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sensor_fusion", Name: "fusion_duration_seconds"}),
		BufferOccupancy:         prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "sensor_fusion", Name: "buffer_occupancy"}, []string{"sensor_type"}),
	}
}
