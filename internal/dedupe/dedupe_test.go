package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/identity"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

type fakeClaimStore struct {
	claims map[string]string
	err    error
}

func newFakeClaimStore() *fakeClaimStore {
	return &fakeClaimStore{claims: map[string]string{}}
}

func (f *fakeClaimStore) Get(_ context.Context, key string) (string, error) {
	return f.claims[key], nil
}

func (f *fakeClaimStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, exists := f.claims[key]; exists {
		return false, nil
	}
	f.claims[key] = "claimed"
	return true, nil
}

func (f *fakeClaimStore) DedupeKey(tenantID, platform, dedupeKey string) string {
	return "stratum:dedupe:" + tenantID + ":" + platform + ":" + dedupeKey
}

func (f *fakeClaimStore) IdempotencyKey(scope, id string) string {
	return "stratum:idempotency:" + scope + ":" + id
}

func (f *fakeClaimStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.claims, key)
	}
	return nil
}

func sampleEvent(eventID string) conversion.NormalizedEvent {
	return conversion.NormalizedEvent{
		TenantID:  uuid.New(),
		Platform:  enums.PlatformMeta,
		EventID:   eventID,
		EventName: "purchase",
		EventTime: time.Date(2025, 12, 1, 9, 15, 42, 0, time.UTC),
		Identity: identity.Profile{
			Hashed: map[string]string{identity.FieldEmail: identity.HashValue("a@b.com")},
		},
	}
}

func TestKeyEventIDStrategy(t *testing.T) {
	key, err := Key(enums.DedupeStrategyEventID, sampleEvent("evt-42"))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key != "evt-42" {
		t.Fatalf("key = %q, want evt-42", key)
	}
}

func TestKeyEventIDStrategyRequiresID(t *testing.T) {
	if _, err := Key(enums.DedupeStrategyEventID, sampleEvent("  ")); err == nil {
		t.Fatalf("expected error for blank event id")
	}
}

func TestKeyCompositeIgnoresEventID(t *testing.T) {
	first := sampleEvent("client-id-1")
	second := sampleEvent("client-id-2")
	second.TenantID = first.TenantID
	// Same name, same minute, same identity: different client ids must collide.
	second.EventTime = first.EventTime.Add(20 * time.Second)

	firstKey, err := Key(enums.DedupeStrategyComposite, first)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	secondKey, err := Key(enums.DedupeStrategyComposite, second)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if firstKey != secondKey {
		t.Fatalf("composite keys differ for same logical event: %s vs %s", firstKey, secondKey)
	}
}

func TestKeyCompositeSeparatesMinutes(t *testing.T) {
	first := sampleEvent("evt")
	second := sampleEvent("evt")
	second.EventTime = first.EventTime.Add(2 * time.Minute)

	firstKey, _ := Key(enums.DedupeStrategyComposite, first)
	secondKey, _ := Key(enums.DedupeStrategyComposite, second)
	if firstKey == secondKey {
		t.Fatalf("events two minutes apart produced the same composite key")
	}
}

func TestKeyUnknownStrategy(t *testing.T) {
	if _, err := Key(enums.DedupeStrategy("bogus"), sampleEvent("evt")); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestRedisStoreClaimsOnce(t *testing.T) {
	claims := newFakeClaimStore()
	store, err := NewRedisStore(claims)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	tenantID := uuid.New()
	ctx := context.Background()

	claimed, err := store.TryClaim(ctx, tenantID, enums.PlatformMeta, "evt-1", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatalf("first claim rejected")
	}

	claimed, err = store.TryClaim(ctx, tenantID, enums.PlatformMeta, "evt-1", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatalf("duplicate claim succeeded")
	}
}

func TestRedisStoreScopesByPlatform(t *testing.T) {
	claims := newFakeClaimStore()
	store, _ := NewRedisStore(claims)
	tenantID := uuid.New()
	ctx := context.Background()

	if claimed, _ := store.TryClaim(ctx, tenantID, enums.PlatformMeta, "evt-1", time.Hour); !claimed {
		t.Fatalf("meta claim rejected")
	}
	if claimed, _ := store.TryClaim(ctx, tenantID, enums.PlatformTikTok, "evt-1", time.Hour); !claimed {
		t.Fatalf("tiktok claim for same key should be independent")
	}
}

func TestRedisStoreValidatesInput(t *testing.T) {
	store, _ := NewRedisStore(newFakeClaimStore())
	if _, err := store.TryClaim(context.Background(), uuid.Nil, enums.PlatformMeta, "evt", time.Hour); err == nil {
		t.Fatalf("expected error for nil tenant")
	}
	if _, err := store.TryClaim(context.Background(), uuid.New(), enums.PlatformMeta, "", time.Hour); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
