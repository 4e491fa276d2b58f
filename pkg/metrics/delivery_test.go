package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDeliveryMetricsExportsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDeliveryMetrics(reg)

	metrics.ObserveAttempt("meta", "delivered", 120*time.Millisecond)
	metrics.ObserveAttempt("meta", "failed", 90*time.Millisecond)
	metrics.IncDeduplicated("meta")
	metrics.IncDeadLetter("meta", "permanent")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "stratum_delivery_attempts_total", "outcome", "delivered"); err != nil {
		t.Fatalf("fetch delivered: %v", err)
	} else if got != 1 {
		t.Fatalf("expected delivered=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "stratum_delivery_attempts_total", "outcome", "failed"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "stratum_events_deduplicated_total", "platform", "meta"); err != nil {
		t.Fatalf("fetch deduplicated: %v", err)
	} else if got != 1 {
		t.Fatalf("expected deduplicated=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "stratum_dead_letters_total", "category", "permanent"); err != nil {
		t.Fatalf("fetch dead letters: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dead_letters=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "stratum_delivery_latency_seconds", "platform", "meta"); err != nil {
		t.Fatalf("fetch latency: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected latency sum > 0, got %f", got)
	}
}

func TestDeliveryMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewDeliveryMetrics(nil)
	metrics.ObserveAttempt("meta", "delivered", time.Second)
	metrics.IncDeduplicated("meta")
	metrics.IncDeadLetter("meta", "transient")
}
