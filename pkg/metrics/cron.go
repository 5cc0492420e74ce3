package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks duration and outcome per maintenance job. A nil
// receiver or a nil registerer yields a no-op instance so worker code never
// branches on metrics being wired.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job collectors on reg.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall-clock duration of one cron job execution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job executions by outcome.",
		}, []string{"job", "outcome"}),
	}
	reg.MustRegister(m.duration, m.runs)
	return m
}

// ObserveDuration records how long the named job took.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess counts a completed execution of the named job.
func (c *CronJobMetrics) IncSuccess(job string) {
	c.incOutcome(job, "ok")
}

// IncFailure counts a failed execution of the named job.
func (c *CronJobMetrics) IncFailure(job string) {
	c.incOutcome(job, "error")
}

func (c *CronJobMetrics) incOutcome(job, outcome string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), outcome).Inc()
}

// normalizeLabel keeps label cardinality sane for callers passing empty
// identifiers. Shared by the pipeline and collaborator collectors.
func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
