package tenants

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/score"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

type fakeConfigStore struct {
	rows  map[string]*models.TenantPlatformConfig
	calls int
}

func storeKey(tenantID uuid.UUID, platform enums.Platform) string {
	return tenantID.String() + "/" + platform.String()
}

func (f *fakeConfigStore) FindByTenantAndPlatform(_ context.Context, tenantID uuid.UUID, platform enums.Platform) (*models.TenantPlatformConfig, error) {
	f.calls++
	row, ok := f.rows[storeKey(tenantID, platform)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func testDefaults() Settings {
	return Settings{
		DedupeStrategy: enums.DedupeStrategyEventID,
		DedupeTTL:      168 * time.Hour,
		MaxRetries:     5,
		BackoffBase:    2 * time.Second,
		BackoffCap:     5 * time.Minute,
		Weights:        score.DefaultWeights(),
	}
}

func TestResolveFallsBackToDefaults(t *testing.T) {
	store := &fakeConfigStore{rows: map[string]*models.TenantPlatformConfig{}}
	resolver, err := NewResolver(store, testDefaults())
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	settings, err := resolver.Resolve(context.Background(), uuid.New(), enums.PlatformMeta)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if settings != testDefaults() {
		t.Fatalf("settings = %+v, want defaults", settings)
	}
}

func TestResolveMergesOverrides(t *testing.T) {
	tenantID := uuid.New()
	strategy := enums.DedupeStrategyComposite
	ttlHours := 24
	maxRetries := 3
	baseMS := int64(500)

	store := &fakeConfigStore{rows: map[string]*models.TenantPlatformConfig{
		storeKey(tenantID, enums.PlatformMeta): {
			TenantID:        tenantID,
			Platform:        enums.PlatformMeta,
			DedupeStrategy:  &strategy,
			DedupeTTLHours:  &ttlHours,
			MaxRetries:      &maxRetries,
			BackoffBaseMS:   &baseMS,
			WeightOverrides: json.RawMessage(`{"email": 50}`),
		},
	}}

	resolver, _ := NewResolver(store, testDefaults())
	settings, err := resolver.Resolve(context.Background(), tenantID, enums.PlatformMeta)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if settings.DedupeStrategy != enums.DedupeStrategyComposite {
		t.Fatalf("strategy = %s", settings.DedupeStrategy)
	}
	if settings.DedupeTTL != 24*time.Hour {
		t.Fatalf("ttl = %s", settings.DedupeTTL)
	}
	if settings.MaxRetries != 3 {
		t.Fatalf("max retries = %d", settings.MaxRetries)
	}
	if settings.BackoffBase != 500*time.Millisecond {
		t.Fatalf("backoff base = %s", settings.BackoffBase)
	}
	if settings.BackoffCap != testDefaults().BackoffCap {
		t.Fatalf("cap should keep default, got %s", settings.BackoffCap)
	}
	if settings.Weights.Email != 50 {
		t.Fatalf("weight override not applied: %+v", settings.Weights)
	}
	if settings.Weights.Phone != 20 {
		t.Fatalf("untouched weight changed: %+v", settings.Weights)
	}
}

func TestResolveCachesLookups(t *testing.T) {
	tenantID := uuid.New()
	store := &fakeConfigStore{rows: map[string]*models.TenantPlatformConfig{}}
	resolver, _ := NewResolver(store, testDefaults())

	ctx := context.Background()
	if _, err := resolver.Resolve(ctx, tenantID, enums.PlatformMeta); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := resolver.Resolve(ctx, tenantID, enums.PlatformMeta); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected 1 store lookup, got %d", store.calls)
	}

	resolver.Invalidate(tenantID, enums.PlatformMeta)
	if _, err := resolver.Resolve(ctx, tenantID, enums.PlatformMeta); err != nil {
		t.Fatalf("post-invalidate resolve: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected invalidate to force a reread, got %d calls", store.calls)
	}
}

func TestResolveRejectsInvalidStoredOverrides(t *testing.T) {
	tenantID := uuid.New()
	bad := enums.DedupeStrategy("bogus")
	store := &fakeConfigStore{rows: map[string]*models.TenantPlatformConfig{
		storeKey(tenantID, enums.PlatformMeta): {
			TenantID:       tenantID,
			Platform:       enums.PlatformMeta,
			DedupeStrategy: &bad,
		},
	}}

	resolver, _ := NewResolver(store, testDefaults())
	if _, err := resolver.Resolve(context.Background(), tenantID, enums.PlatformMeta); err == nil {
		t.Fatalf("expected error for invalid stored strategy")
	}
}
