package tenants

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/score"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
)

const cacheTTL = time.Minute

// Settings is the effective per-tenant/per-platform configuration after
// merging stored overrides onto the process defaults.
type Settings struct {
	DedupeStrategy enums.DedupeStrategy
	DedupeTTL      time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	Weights        score.Weights
}

// ConfigStore is the persistence surface the resolver depends on.
type ConfigStore interface {
	FindByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, platform enums.Platform) (*models.TenantPlatformConfig, error)
}

// Resolver returns effective settings with a short-lived in-process cache so
// the hot dispatch path does not hit Postgres per event.
type Resolver struct {
	repo     ConfigStore
	defaults Settings

	mu    sync.RWMutex
	cache map[cacheKey]cacheEntry
	now   func() time.Time
}

type cacheKey struct {
	tenantID uuid.UUID
	platform enums.Platform
}

type cacheEntry struct {
	settings  Settings
	expiresAt time.Time
}

// DefaultsFromConfig derives the fallback settings from process config.
func DefaultsFromConfig(cfg *config.Config) (Settings, error) {
	strategy, err := enums.ParseDedupeStrategy(cfg.Dedupe.Strategy)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid default dedupe strategy")
	}
	return Settings{
		DedupeStrategy: strategy,
		DedupeTTL:      cfg.Dedupe.TTL,
		MaxRetries:     cfg.Retry.MaxAttempts,
		BackoffBase:    cfg.Retry.BackoffBase,
		BackoffCap:     cfg.Retry.BackoffCap,
		Weights:        score.DefaultWeights(),
	}, nil
}

// NewResolver builds a resolver over the config store.
func NewResolver(repo ConfigStore, defaults Settings) (*Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config store is required")
	}
	return &Resolver{
		repo:     repo,
		defaults: defaults,
		cache:    map[cacheKey]cacheEntry{},
		now:      time.Now,
	}, nil
}

// Resolve returns the effective settings for the tenant/platform pair. A
// missing override row resolves to the defaults.
func (r *Resolver) Resolve(ctx context.Context, tenantID uuid.UUID, platform enums.Platform) (Settings, error) {
	key := cacheKey{tenantID: tenantID, platform: platform}

	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && r.now().Before(entry.expiresAt) {
		return entry.settings, nil
	}

	row, err := r.repo.FindByTenantAndPlatform(ctx, tenantID, platform)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.store(key, r.defaults)
			return r.defaults, nil
		}
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant platform config")
	}

	settings, err := r.merge(row)
	if err != nil {
		return Settings{}, err
	}
	r.store(key, settings)
	return settings, nil
}

// Invalidate drops the cached entry so the next Resolve rereads the row.
func (r *Resolver) Invalidate(tenantID uuid.UUID, platform enums.Platform) {
	r.mu.Lock()
	delete(r.cache, cacheKey{tenantID: tenantID, platform: platform})
	r.mu.Unlock()
}

func (r *Resolver) store(key cacheKey, settings Settings) {
	r.mu.Lock()
	r.cache[key] = cacheEntry{settings: settings, expiresAt: r.now().Add(cacheTTL)}
	r.mu.Unlock()
}

func (r *Resolver) merge(row *models.TenantPlatformConfig) (Settings, error) {
	settings := r.defaults

	if row.DedupeStrategy != nil {
		if !row.DedupeStrategy.IsValid() {
			return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "stored dedupe strategy is invalid")
		}
		settings.DedupeStrategy = *row.DedupeStrategy
	}
	if row.DedupeTTLHours != nil && *row.DedupeTTLHours > 0 {
		settings.DedupeTTL = time.Duration(*row.DedupeTTLHours) * time.Hour
	}
	if row.MaxRetries != nil && *row.MaxRetries > 0 {
		settings.MaxRetries = *row.MaxRetries
	}
	if row.BackoffBaseMS != nil && *row.BackoffBaseMS > 0 {
		settings.BackoffBase = time.Duration(*row.BackoffBaseMS) * time.Millisecond
	}
	if row.BackoffCapMS != nil && *row.BackoffCapMS > 0 {
		settings.BackoffCap = time.Duration(*row.BackoffCapMS) * time.Millisecond
	}
	if len(row.WeightOverrides) > 0 {
		weights, err := score.ApplyOverrides(settings.Weights, row.WeightOverrides)
		if err != nil {
			return Settings{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stored weight overrides are invalid")
		}
		settings.Weights = weights
	}

	return settings, nil
}
