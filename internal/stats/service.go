package stats

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

// Store is the persistence surface the aggregator depends on.
type Store interface {
	ListLogsForDay(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, day time.Time) ([]models.DeliveryLog, error)
	ActivePairs(ctx context.Context, day time.Time) ([]Pair, error)
	Upsert(ctx context.Context, stat *models.DailyStat) error
	List(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, from, to time.Time) ([]models.DailyStat, error)
}

// ServiceParams groups dependencies for the stats aggregator.
type ServiceParams struct {
	Store  Store
	Logger *logger.Logger
	Now    func() time.Time
}

// Service recomputes and serves daily delivery stats.
type Service interface {
	Rollup(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, day time.Time) (models.DailyStat, error)
	RollupDay(ctx context.Context, day time.Time) (int, error)
	List(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, from, to time.Time) ([]models.DailyStat, error)
}

type service struct {
	store Store
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds the stats service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stats store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{store: params.Store, logg: params.Logger, now: now}, nil
}

// Rollup re-derives the stat row for one key from that day's logs and
// replaces any existing row. Rerunning after a correction is safe.
func (s *service) Rollup(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, day time.Time) (models.DailyStat, error) {
	if tenantID == uuid.Nil {
		return models.DailyStat{}, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if !platform.IsValid() {
		return models.DailyStat{}, pkgerrors.New(pkgerrors.CodeValidation, "platform is invalid")
	}

	logs, err := s.store.ListLogsForDay(ctx, tenantID, platform, day)
	if err != nil {
		return models.DailyStat{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery logs for day")
	}

	stat := Compute(tenantID, platform, day, logs)
	stat.ComputedAt = s.now().UTC()

	if err := s.store.Upsert(ctx, &stat); err != nil {
		return models.DailyStat{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert daily stat")
	}
	return stat, nil
}

// RollupDay recomputes every active (tenant, platform) pair for the day and
// returns how many rows were written.
func (s *service) RollupDay(ctx context.Context, day time.Time) (int, error) {
	pairs, err := s.store.ActivePairs(ctx, day)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active pairs for day")
	}

	written := 0
	for _, pair := range pairs {
		if _, err := s.Rollup(ctx, pair.TenantID, pair.Platform, day); err != nil {
			s.logg.Error(ctx, "daily stat rollup failed", err)
			continue
		}
		written++
	}
	return written, nil
}

// List returns stat rows for the tenant in the inclusive date range.
func (s *service) List(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, from, to time.Time) ([]models.DailyStat, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range is inverted")
	}
	rows, err := s.store.List(ctx, tenantID, platform, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list daily stats")
	}
	return rows, nil
}

// Compute derives one stat row from a day's logs. Pure: same logs, same row.
func Compute(tenantID uuid.UUID, platform enums.Platform, day time.Time, logs []models.DeliveryLog) models.DailyStat {
	stat := models.DailyStat{
		TenantID:   tenantID,
		Platform:   platform,
		StatDate:   day.UTC().Truncate(24 * time.Hour),
		TotalValue: decimal.Zero,
	}

	var latencies []int64
	for _, entry := range logs {
		stat.TotalCount++
		switch entry.Status {
		case enums.DeliveryStatusDelivered:
			stat.SuccessCount++
			stat.TotalValue = stat.TotalValue.Add(entry.Value)
		case enums.DeliveryStatusFailed:
			stat.FailedCount++
		case enums.DeliveryStatusDeduplicated:
			stat.DeduplicatedCount++
		}
		if entry.AttemptNumber > 1 {
			stat.RetriedCount++
		}
		if entry.Status != enums.DeliveryStatusDeduplicated {
			latencies = append(latencies, entry.LatencyMS)
		}
	}

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		stat.LatencyP50MS = percentile(latencies, 50)
		stat.LatencyP95MS = percentile(latencies, 95)
		stat.LatencyP99MS = percentile(latencies, 99)
		stat.LatencyMaxMS = latencies[len(latencies)-1]
	}

	return stat
}

// percentile is nearest-rank over a sorted slice.
func percentile(sorted []int64, q int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (q*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
