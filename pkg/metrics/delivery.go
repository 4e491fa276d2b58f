package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records per-platform delivery outcomes.
type DeliveryMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	deduped  *prometheus.CounterVec
	dlq      *prometheus.CounterVec
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_attempts_total",
		Help:      "Delivery attempts by platform and outcome.",
	}, []string{"platform", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "delivery_latency_seconds",
		Help:      "Connector round trip latency in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"platform"})
	deduped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_deduplicated_total",
		Help:      "Events short circuited by the dedupe layer.",
	}, []string{"platform"})
	dlq := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dead_letters_total",
		Help:      "Events routed to the dead letter queue.",
	}, []string{"platform", "category"})
	reg.MustRegister(attempts, latency, deduped, dlq)
	return &DeliveryMetrics{
		attempts: attempts,
		latency:  latency,
		deduped:  deduped,
		dlq:      dlq,
	}
}

// ObserveAttempt records one delivery attempt and its latency.
func (d *DeliveryMetrics) ObserveAttempt(platform, outcome string, latency time.Duration) {
	if d == nil || d.attempts == nil {
		return
	}
	d.attempts.WithLabelValues(normalizeLabel(platform), normalizeLabel(outcome)).Inc()
	d.latency.WithLabelValues(normalizeLabel(platform)).Observe(latency.Seconds())
}

// IncDeduplicated increments the dedupe counter for the platform.
func (d *DeliveryMetrics) IncDeduplicated(platform string) {
	if d == nil || d.deduped == nil {
		return
	}
	d.deduped.WithLabelValues(normalizeLabel(platform)).Inc()
}

// IncDeadLetter increments the dead letter counter for the platform.
func (d *DeliveryMetrics) IncDeadLetter(platform, category string) {
	if d == nil || d.dlq == nil {
		return
	}
	d.dlq.WithLabelValues(normalizeLabel(platform), normalizeLabel(category)).Inc()
}
