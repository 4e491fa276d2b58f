package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/connector"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/score"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/tenants"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

type fakeLogStore struct {
	entries []models.DeliveryLog
}

func (f *fakeLogStore) Append(_ context.Context, entry *models.DeliveryLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeDedupeStore struct {
	claims map[string]bool
}

func newFakeDedupeStore() *fakeDedupeStore {
	return &fakeDedupeStore{claims: map[string]bool{}}
}

func (f *fakeDedupeStore) TryClaim(_ context.Context, tenantID uuid.UUID, platform enums.Platform, key string, _ time.Duration) (bool, error) {
	full := tenantID.String() + "/" + platform.String() + "/" + key
	if f.claims[full] {
		return false, nil
	}
	f.claims[full] = true
	return true, nil
}

type scriptedConnector struct {
	platform enums.Platform
	results  []connector.Result
	calls    int
}

func (s *scriptedConnector) Platform() enums.Platform {
	return s.platform
}

func (s *scriptedConnector) Deliver(_ context.Context, _ conversion.NormalizedEvent) connector.Result {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx]
}

type recordedEnqueue struct {
	event      conversion.NormalizedEvent
	reason     string
	category   enums.ErrorCategory
	retryCount int
	maxRetries int
}

type fakeSink struct {
	enqueued []recordedEnqueue
}

func (f *fakeSink) Enqueue(_ context.Context, event conversion.NormalizedEvent, reason string, category enums.ErrorCategory, retryCount, maxRetries int) error {
	f.enqueued = append(f.enqueued, recordedEnqueue{
		event:      event,
		reason:     reason,
		category:   category,
		retryCount: retryCount,
		maxRetries: maxRetries,
	})
	return nil
}

type staticResolver struct {
	settings tenants.Settings
}

func (s *staticResolver) Resolve(_ context.Context, _ uuid.UUID, _ enums.Platform) (tenants.Settings, error) {
	return s.settings, nil
}

func testSettings() tenants.Settings {
	return tenants.Settings{
		DedupeStrategy: enums.DedupeStrategyEventID,
		DedupeTTL:      168 * time.Hour,
		MaxRetries:     3,
		BackoffBase:    2 * time.Second,
		BackoffCap:     time.Minute,
		Weights:        score.DefaultWeights(),
	}
}

type harness struct {
	svc    *Service
	logs   *fakeLogStore
	sink   *fakeSink
	dedupe *fakeDedupeStore
	slept  []time.Duration
}

func newHarness(t *testing.T, conn connector.Connector) *harness {
	t.Helper()

	logs := &fakeLogStore{}
	sink := &fakeSink{}
	dedupeStore := newFakeDedupeStore()
	registry, err := connector.NewRegistry(conn)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	h := &harness{logs: logs, sink: sink, dedupe: dedupeStore}

	svc, err := NewService(ServiceParams{
		Logs:             logs,
		Dedupe:           dedupeStore,
		Connectors:       registry,
		DeadLetters:      sink,
		Resolver:         &staticResolver{settings: testSettings()},
		Logger:           logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
		ConnectorTimeout: time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			h.slept = append(h.slept, d)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h
}

func dispatchableEvent() conversion.NormalizedEvent {
	return conversion.NormalizedEvent{
		TenantID:     uuid.New(),
		Platform:     enums.PlatformMeta,
		EventID:      "evt-1",
		EventName:    "purchase",
		EventTime:    time.Now().UTC(),
		MatchQuality: 45,
		DedupeKey:    "evt-1",
	}
}

func TestDispatchDeliversFirstAttempt(t *testing.T) {
	conn := &scriptedConnector{
		platform: enums.PlatformMeta,
		results:  []connector.Result{{Success: true, PlatformTraceID: "trace-1", StatusCode: 200}},
	}
	h := newHarness(t, conn)

	outcome, err := h.svc.Dispatch(context.Background(), dispatchableEvent())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("status = %s, want delivered", outcome.Status)
	}
	if outcome.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", outcome.Attempts)
	}
	if len(h.logs.entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(h.logs.entries))
	}
	entry := h.logs.entries[0]
	if entry.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("log status = %s", entry.Status)
	}
	if entry.MatchQuality != 45 {
		t.Fatalf("match quality not stamped on log: %d", entry.MatchQuality)
	}
	if len(h.sink.enqueued) != 0 {
		t.Fatalf("successful delivery must not touch the DLQ")
	}
}

func TestDispatchSecondSubmissionDeduplicated(t *testing.T) {
	conn := &scriptedConnector{
		platform: enums.PlatformMeta,
		results:  []connector.Result{{Success: true}, {Success: true}},
	}
	h := newHarness(t, conn)
	event := dispatchableEvent()

	first, err := h.svc.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if first.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("first status = %s", first.Status)
	}

	second, err := h.svc.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if second.Status != enums.DeliveryStatusDeduplicated {
		t.Fatalf("second status = %s, want deduplicated", second.Status)
	}
	if conn.calls != 1 {
		t.Fatalf("connector called %d times, want 1", conn.calls)
	}
	if len(h.logs.entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(h.logs.entries))
	}
	if h.logs.entries[1].Status != enums.DeliveryStatusDeduplicated {
		t.Fatalf("second log status = %s", h.logs.entries[1].Status)
	}
}

func TestDispatchAuthFailureGoesStraightToDLQ(t *testing.T) {
	conn := &scriptedConnector{
		platform: enums.PlatformMeta,
		results: []connector.Result{{
			Success:    false,
			StatusCode: 401,
			ErrorCode:  "190",
			Category:   enums.ErrorCategoryAuth,
		}},
	}
	h := newHarness(t, conn)

	outcome, err := h.svc.Dispatch(context.Background(), dispatchableEvent())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome.Status != enums.DeliveryStatusFailed {
		t.Fatalf("status = %s, want failed", outcome.Status)
	}
	if conn.calls != 1 {
		t.Fatalf("auth failure must not retry, connector called %d times", conn.calls)
	}
	if len(h.logs.entries) != 1 || h.logs.entries[0].Status != enums.DeliveryStatusFailed {
		t.Fatalf("expected exactly one failed log entry")
	}
	if len(h.sink.enqueued) != 1 {
		t.Fatalf("expected exactly one DLQ entry, got %d", len(h.sink.enqueued))
	}
	enqueued := h.sink.enqueued[0]
	if enqueued.category != enums.ErrorCategoryPermanent {
		t.Fatalf("DLQ category = %s, want permanent", enqueued.category)
	}
	if enqueued.retryCount != 0 {
		t.Fatalf("DLQ retry count = %d, want 0", enqueued.retryCount)
	}
	if len(h.slept) != 0 {
		t.Fatalf("no retry sleep expected for auth failure")
	}
}

func TestDispatchTransientExhaustionGoesToDLQ(t *testing.T) {
	transient := connector.Result{
		Success:   false,
		ErrorCode: "timeout",
		Category:  enums.ErrorCategoryTransient,
	}
	conn := &scriptedConnector{
		platform: enums.PlatformMeta,
		results:  []connector.Result{transient, transient, transient},
	}
	h := newHarness(t, conn)

	outcome, err := h.svc.Dispatch(context.Background(), dispatchableEvent())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome.Status != enums.DeliveryStatusFailed {
		t.Fatalf("status = %s, want failed", outcome.Status)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("attempts = %d, want max retries 3", outcome.Attempts)
	}
	if len(h.logs.entries) != 3 {
		t.Fatalf("log entries = %d, want 3", len(h.logs.entries))
	}
	if len(h.sink.enqueued) != 1 {
		t.Fatalf("expected exactly one DLQ entry, got %d", len(h.sink.enqueued))
	}
	enqueued := h.sink.enqueued[0]
	if enqueued.retryCount != 3 {
		t.Fatalf("DLQ retry count = %d, want 3", enqueued.retryCount)
	}
	if enqueued.category != enums.ErrorCategoryTransient {
		t.Fatalf("DLQ category = %s, want transient", enqueued.category)
	}

	// Two sleeps between three attempts, exponential base 2s.
	if len(h.slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(h.slept))
	}
	if h.slept[0] != 2*time.Second || h.slept[1] != 4*time.Second {
		t.Fatalf("backoff delays = %v, want [2s 4s]", h.slept)
	}
}

func TestDispatchRecoversAfterTransientFailure(t *testing.T) {
	conn := &scriptedConnector{
		platform: enums.PlatformMeta,
		results: []connector.Result{
			{Success: false, ErrorCode: "503", Category: enums.ErrorCategoryTransient},
			{Success: true, PlatformTraceID: "trace-2"},
		},
	}
	h := newHarness(t, conn)

	outcome, err := h.svc.Dispatch(context.Background(), dispatchableEvent())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("status = %s, want delivered", outcome.Status)
	}
	if outcome.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", outcome.Attempts)
	}
	if len(h.logs.entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(h.logs.entries))
	}
	if h.logs.entries[0].Status != enums.DeliveryStatusFailed {
		t.Fatalf("first attempt should be logged failed")
	}
	if h.logs.entries[0].AttemptNumber != 1 || h.logs.entries[1].AttemptNumber != 2 {
		t.Fatalf("attempt numbers not sequential: %d, %d",
			h.logs.entries[0].AttemptNumber, h.logs.entries[1].AttemptNumber)
	}
	if len(h.sink.enqueued) != 0 {
		t.Fatalf("recovered delivery must not touch the DLQ")
	}
}

func TestDispatchRequiresDedupeKey(t *testing.T) {
	h := newHarness(t, &scriptedConnector{platform: enums.PlatformMeta, results: []connector.Result{{Success: true}}})

	event := dispatchableEvent()
	event.DedupeKey = ""
	if _, err := h.svc.Dispatch(context.Background(), event); err == nil {
		t.Fatalf("expected error for missing dedupe key")
	}
}

func TestRedeliverSkipsDedupeAndLogsAttempt(t *testing.T) {
	conn := &scriptedConnector{
		platform: enums.PlatformMeta,
		results:  []connector.Result{{Success: true, PlatformTraceID: "trace-replay"}},
	}
	h := newHarness(t, conn)

	event := dispatchableEvent()
	result := h.svc.Redeliver(context.Background(), event, 4)
	if !result.Success {
		t.Fatalf("expected success")
	}
	if len(h.logs.entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(h.logs.entries))
	}
	if h.logs.entries[0].AttemptNumber != 4 {
		t.Fatalf("attempt number = %d, want 4", h.logs.entries[0].AttemptNumber)
	}
	if h.logs.entries[0].Status != enums.DeliveryStatusDelivered {
		t.Fatalf("log status = %s", h.logs.entries[0].Status)
	}
	if len(h.dedupe.claims) != 0 {
		t.Fatalf("redeliver must not touch the dedupe store")
	}
}

func TestDispatchUnregisteredPlatformLeavesClaimFree(t *testing.T) {
	conn := &scriptedConnector{
		platform: enums.PlatformMeta,
		results:  []connector.Result{{Success: true}},
	}
	h := newHarness(t, conn)

	event := dispatchableEvent()
	event.Platform = enums.PlatformGoogle

	if _, err := h.svc.Dispatch(context.Background(), event); err == nil {
		t.Fatal("expected error for unregistered platform")
	}
	if len(h.dedupe.claims) != 0 {
		t.Fatalf("claims = %d, want 0: a failed lookup must not consume the claim", len(h.dedupe.claims))
	}
	if len(h.logs.entries) != 0 {
		t.Fatalf("log entries = %d, want 0", len(h.logs.entries))
	}
	if len(h.sink.enqueued) != 0 {
		t.Fatalf("dlq enqueues = %d, want 0", len(h.sink.enqueued))
	}

	// The same event can still go through once the right platform is targeted.
	event.Platform = enums.PlatformMeta
	outcome, err := h.svc.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("status = %s, want delivered", outcome.Status)
	}
}

func TestDispatchCancelledBackoffParksEventInDLQ(t *testing.T) {
	conn := &scriptedConnector{
		platform: enums.PlatformMeta,
		results: []connector.Result{
			{Success: false, Category: enums.ErrorCategoryTransient, ErrorCode: "timeout"},
		},
	}
	h := newHarness(t, conn)
	h.svc.sleep = func(_ context.Context, _ time.Duration) error {
		return context.Canceled
	}

	event := dispatchableEvent()
	outcome, err := h.svc.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome.Status != enums.DeliveryStatusFailed {
		t.Fatalf("status = %s, want failed", outcome.Status)
	}
	if outcome.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", outcome.Attempts)
	}
	if len(h.logs.entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(h.logs.entries))
	}
	if len(h.sink.enqueued) != 1 {
		t.Fatalf("dlq enqueues = %d, want 1", len(h.sink.enqueued))
	}
	parked := h.sink.enqueued[0]
	if parked.category != enums.ErrorCategoryTransient {
		t.Fatalf("category = %s, want transient", parked.category)
	}
	if parked.retryCount != 1 {
		t.Fatalf("retry count = %d, want 1", parked.retryCount)
	}
}
