package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records per-stage outcomes for enrichment runs.
type PipelineMetrics struct {
	stageDuration *prometheus.HistogramVec
	stageOutcome  *prometheus.CounterVec
	runsInFlight  prometheus.Gauge
	queueDepth    prometheus.Gauge
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 90, 120},
	}, []string{"stage"})
	stageOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_outcome_total",
		Help: "Pipeline stage completions by outcome.",
	}, []string{"stage", "outcome"})
	runsInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_runs_in_flight",
		Help: "Number of pipeline runs currently executing.",
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_queue_depth",
		Help: "Number of runs waiting for a worker.",
	})
	reg.MustRegister(stageDuration, stageOutcome, runsInFlight, queueDepth)
	return &PipelineMetrics{
		stageDuration: stageDuration,
		stageOutcome:  stageOutcome,
		runsInFlight:  runsInFlight,
		queueDepth:    queueDepth,
	}
}

// ObserveStage records the duration and outcome of one stage execution.
func (p *PipelineMetrics) ObserveStage(stage string, duration time.Duration, outcome string) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
	p.stageOutcome.WithLabelValues(normalizeLabel(stage), normalizeLabel(outcome)).Inc()
}

// RunStarted marks a run as in flight.
func (p *PipelineMetrics) RunStarted() {
	if p == nil || p.runsInFlight == nil {
		return
	}
	p.runsInFlight.Inc()
}

// RunFinished marks a run as complete.
func (p *PipelineMetrics) RunFinished() {
	if p == nil || p.runsInFlight == nil {
		return
	}
	p.runsInFlight.Dec()
}

// SetQueueDepth reports the current scheduler queue depth.
func (p *PipelineMetrics) SetQueueDepth(depth int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(depth))
}
