package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
)

const defaultPublishTimeout = 30 * time.Second

// EventPublisher pushes normalized events onto the conversions topic for the
// dispatch worker.
type EventPublisher struct {
	pub *gcppubsub.Publisher
}

func NewEventPublisher(pub *gcppubsub.Publisher) *EventPublisher {
	return &EventPublisher{pub: pub}
}

func (p *EventPublisher) Publish(ctx context.Context, event conversion.NormalizedEvent) error {
	if p == nil || p.pub == nil {
		return fmt.Errorf("conversions publisher not configured")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal conversion event: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"tenant_id":  event.TenantID.String(),
			"platform":   string(event.Platform),
			"event_id":   event.EventID,
			"dedupe_key": event.DedupeKey,
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("conversions publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return err
	}
	return nil
}
