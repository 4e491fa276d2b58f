package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dispatch"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

const idempotencyScope = "conversion-dispatch"

type dispatcher interface {
	Dispatch(ctx context.Context, event conversion.NormalizedEvent) (dispatch.Outcome, error)
}

type claimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Consumer drains the conversions subscription and runs each event through
// the dispatcher. A Redis claim per message id keeps redeliveries from
// double-dispatching; the dedupe layer below is the authoritative guard.
type Consumer struct {
	dispatcher   dispatcher
	claims       claimStore
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	claimTTL     time.Duration
}

func NewConsumer(dispatcher dispatcher, claims claimStore, subscription *pubsub.Subscriber, logg *logger.Logger, claimTTL time.Duration) (*Consumer, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if claims == nil {
		return nil, errors.New("claim store is required")
	}
	if subscription == nil {
		return nil, errors.New("conversions subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if claimTTL <= 0 {
		claimTTL = 720 * time.Hour
	}
	return &Consumer{
		dispatcher:   dispatcher,
		claims:       claims,
		subscription: subscription,
		logg:         logg,
		claimTTL:     claimTTL,
	}, nil
}

// Run processes conversion events until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_id":   msg.Attributes["event_id"],
		"platform":   msg.Attributes["platform"],
	})

	var event conversion.NormalizedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal conversion event", err)
		return processResult{ack: true}
	}
	if event.DedupeKey == "" {
		c.logg.Error(logCtx, "conversion event missing dedupe key", errors.New("empty dedupe key"))
		return processResult{ack: true}
	}

	claimKey := c.claims.IdempotencyKey(idempotencyScope, claimID(event))
	claimed, err := c.claims.SetNX(logCtx, claimKey, time.Now().UTC().Format(time.RFC3339Nano), c.claimTTL)
	if err != nil {
		c.logg.Error(logCtx, "failed to claim message", err)
		return processResult{nack: true}
	}
	if !claimed {
		c.logg.Info(logCtx, "message already processed")
		return processResult{ack: true}
	}

	outcome, err := c.dispatcher.Dispatch(logCtx, event)
	if err != nil {
		// Release the claim so the redelivery can try again.
		if delErr := c.claims.Del(logCtx, claimKey); delErr != nil {
			c.logg.Error(logCtx, "failed to release claim", delErr)
		}
		c.logg.Error(logCtx, "dispatch failed", err)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"status":   string(outcome.Status),
		"attempts": outcome.Attempts,
	})
	c.logg.Info(logCtx, "conversion event dispatched")
	return processResult{ack: true}
}

// claimID keys the idempotency claim on tenant/platform/dedupe-key so both
// broker redeliveries and republished duplicates resolve to one claim.
func claimID(event conversion.NormalizedEvent) string {
	return event.TenantID.String() + ":" + event.Platform.String() + ":" + event.DedupeKey
}
