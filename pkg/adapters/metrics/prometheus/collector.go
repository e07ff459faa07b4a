package prometheus

import (
	"time"

	"github.com/aescanero/crossplot/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	triggers       *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	streamedLines  prometheus.Counter
	activeTriggers prometheus.Gauge
}

var _ ports.MetricsCollector = (*Collector)(nil)

// NewCollector creates a new Prometheus metrics collector registered on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		triggers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossplot_triggers_total",
				Help: "Total number of triggers by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crossplot_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		stageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossplot_stage_failures_total",
				Help: "Total number of pipeline failures by stage",
			},
			[]string{"stage"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossplot_uploads_total",
				Help: "Total number of successful object uploads",
			},
			[]string{"object"},
		),
		streamedLines: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "crossplot_streamed_lines_total",
				Help: "Total number of collector output lines streamed to clients",
			},
		),
		activeTriggers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "crossplot_active_triggers",
				Help: "Number of triggers currently running",
			},
		),
	}
}

// RecordTrigger records a finished trigger
func (c *Collector) RecordTrigger(mode, outcome string) {
	c.triggers.WithLabelValues(mode, outcome).Inc()
}

// ObserveStage records the duration of a pipeline stage
func (c *Collector) ObserveStage(stage string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordStageFailure records a stage that ended the trigger
func (c *Collector) RecordStageFailure(stage string) {
	c.stageFailures.WithLabelValues(stage).Inc()
}

// RecordUpload records a successful upload
func (c *Collector) RecordUpload(object string) {
	c.uploads.WithLabelValues(object).Inc()
}

// RecordStreamedLine records one line forwarded to a client
func (c *Collector) RecordStreamedLine() {
	c.streamedLines.Inc()
}

// SetActiveTriggers adjusts the running trigger gauge by delta
func (c *Collector) SetActiveTriggers(delta int) {
	c.activeTriggers.Add(float64(delta))
}
