package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CollaboratorMetrics tracks outbound calls to the inference service.
type CollaboratorMetrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	throttle *prometheus.CounterVec
}

// NewCollaboratorMetrics registers collaborator call metrics.
func NewCollaboratorMetrics(reg prometheus.Registerer) *CollaboratorMetrics {
	if reg == nil {
		return &CollaboratorMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collaborator_call_duration_seconds",
		Help:    "Duration of inference service calls in seconds.",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 15, 30, 60, 90},
	}, []string{"operation"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collaborator_call_errors_total",
		Help: "Failed inference service calls by operation and kind.",
	}, []string{"operation", "kind"})
	throttle := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collaborator_throttle_waits_total",
		Help: "Times a call waited on the shared rate limiter.",
	}, []string{"operation"})
	reg.MustRegister(duration, errs, throttle)
	return &CollaboratorMetrics{
		duration: duration,
		errors:   errs,
		throttle: throttle,
	}
}

// ObserveCall records the duration of a completed call.
func (c *CollaboratorMetrics) ObserveCall(operation string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncError counts a failed call. Kind distinguishes timeouts from other failures.
func (c *CollaboratorMetrics) IncError(operation, kind string) {
	if c == nil || c.errors == nil {
		return
	}
	c.errors.WithLabelValues(normalizeLabel(operation), normalizeLabel(kind)).Inc()
}

// IncThrottleWait counts a rate limiter wait.
func (c *CollaboratorMetrics) IncThrottleWait(operation string) {
	if c == nil || c.throttle == nil {
		return
	}
	c.throttle.WithLabelValues(normalizeLabel(operation)).Inc()
}
