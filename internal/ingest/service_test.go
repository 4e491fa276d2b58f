package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dispatch"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/score"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/tenants"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
	"github.com/rs/zerolog"
)

type fakeDispatcher struct {
	events []conversion.NormalizedEvent
	err    error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, event conversion.NormalizedEvent) (dispatch.Outcome, error) {
	f.events = append(f.events, event)
	if f.err != nil {
		return dispatch.Outcome{}, f.err
	}
	return dispatch.Outcome{Status: enums.DeliveryStatusDelivered, Attempts: 1}, nil
}

type fakePublisher struct {
	events []conversion.NormalizedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event conversion.NormalizedEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type staticResolver struct {
	settings tenants.Settings
	err      error
}

func (s *staticResolver) Resolve(_ context.Context, _ uuid.UUID, _ enums.Platform) (tenants.Settings, error) {
	return s.settings, s.err
}

func testSettings() tenants.Settings {
	return tenants.Settings{
		DedupeStrategy: enums.DedupeStrategyEventID,
		DedupeTTL:      168 * time.Hour,
		MaxRetries:     5,
		BackoffBase:    2 * time.Second,
		BackoffCap:     5 * time.Minute,
		Weights:        score.DefaultWeights(),
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func validRaw() conversion.RawEvent {
	return conversion.RawEvent{
		TenantID:  uuid.New(),
		Platforms: []string{"meta", "tiktok"},
		EventName: "Purchase",
		EventID:   "evt-100",
		EventTime: time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
		IdentityFields: map[string]string{
			"email": "buyer@example.com",
			"phone": "+1 555 123 4567",
		},
		CustomData: map[string]any{"value": "25.50", "currency": "USD"},
	}
}

func TestSubmitInlineFansOutPerPlatform(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, err := NewService(ServiceParams{
		Dispatcher: dispatcher,
		Resolver:   &staticResolver{settings: testSettings()},
		Logger:     testLogger(),
		Mode:       ModeInline,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	receipt, err := svc.Submit(context.Background(), validRaw())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !receipt.Accepted {
		t.Fatal("expected submission to be accepted")
	}
	if len(receipt.Results) != 2 {
		t.Fatalf("expected 2 platform receipts, got %d", len(receipt.Results))
	}
	if len(dispatcher.events) != 2 {
		t.Fatalf("expected 2 dispatched events, got %d", len(dispatcher.events))
	}

	for i, want := range []enums.Platform{enums.PlatformMeta, enums.PlatformTikTok} {
		got := receipt.Results[i]
		if got.Platform != want {
			t.Fatalf("receipt %d platform = %s, want %s", i, got.Platform, want)
		}
		if got.DedupeKey != "evt-100" {
			t.Fatalf("receipt %d dedupe key = %q, want evt-100", i, got.DedupeKey)
		}
		if got.MatchQualityScore != 45 {
			t.Fatalf("receipt %d match quality = %d, want 45", i, got.MatchQualityScore)
		}
		if dispatcher.events[i].DedupeKey != "evt-100" {
			t.Fatalf("dispatched event %d missing dedupe key", i)
		}
	}
}

func TestSubmitInlineSwallowsDeliveryFailures(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("platform down")}
	svc, err := NewService(ServiceParams{
		Dispatcher: dispatcher,
		Resolver:   &staticResolver{settings: testSettings()},
		Logger:     testLogger(),
		Mode:       ModeInline,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	raw := validRaw()
	raw.Platforms = []string{"meta"}

	receipt, err := svc.Submit(context.Background(), raw)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !receipt.Accepted {
		t.Fatal("expected submission to be accepted despite delivery failure")
	}
	if len(dispatcher.events) != 1 {
		t.Fatalf("expected 1 dispatch attempt, got %d", len(dispatcher.events))
	}
}

func TestSubmitQueuePublishesNormalizedEvents(t *testing.T) {
	publisher := &fakePublisher{}
	svc, err := NewService(ServiceParams{
		Publisher: publisher,
		Resolver:  &staticResolver{settings: testSettings()},
		Logger:    testLogger(),
		Mode:      ModeQueue,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	receipt, err := svc.Submit(context.Background(), validRaw())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !receipt.Accepted {
		t.Fatal("expected submission to be accepted")
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	for _, event := range publisher.events {
		if event.DedupeKey == "" {
			t.Fatal("published event missing dedupe key")
		}
		if event.MatchQuality != 45 {
			t.Fatalf("published event match quality = %d, want 45", event.MatchQuality)
		}
	}
}

func TestSubmitQueuePublishFailureIsReported(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker unavailable")}
	svc, err := NewService(ServiceParams{
		Publisher: publisher,
		Resolver:  &staticResolver{settings: testSettings()},
		Logger:    testLogger(),
		Mode:      ModeQueue,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	_, err = svc.Submit(context.Background(), validRaw())
	if err == nil {
		t.Fatal("expected publish failure to surface")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSubmitRejectsMalformedEvents(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Dispatcher: &fakeDispatcher{},
		Resolver:   &staticResolver{settings: testSettings()},
		Logger:     testLogger(),
		Mode:       ModeInline,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	raw := validRaw()
	raw.EventName = "  "

	if _, err := svc.Submit(context.Background(), raw); err == nil {
		t.Fatal("expected validation error for blank event name")
	}
}

func TestNewServiceValidatesModeWiring(t *testing.T) {
	resolver := &staticResolver{settings: testSettings()}

	if _, err := NewService(ServiceParams{Resolver: resolver, Logger: testLogger(), Mode: ModeInline}); err == nil {
		t.Fatal("expected error for inline mode without dispatcher")
	}
	if _, err := NewService(ServiceParams{Resolver: resolver, Logger: testLogger(), Mode: ModeQueue}); err == nil {
		t.Fatal("expected error for queue mode without publisher")
	}
	if _, err := NewService(ServiceParams{Resolver: resolver, Logger: testLogger(), Dispatcher: &fakeDispatcher{}, Mode: "batch"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
