package stats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// Repository reads delivery logs and writes daily stat rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a stats repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListLogsForDay returns all delivery log entries for one tenant, platform,
// and UTC day.
func (r *Repository) ListLogsForDay(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, day time.Time) ([]models.DeliveryLog, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	var logs []models.DeliveryLog
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ? AND attempted_at >= ? AND attempted_at < ?",
			tenantID, platform.String(), start, end).
		Find(&logs).Error
	return logs, err
}

// ActivePairs returns the distinct (tenant, platform) pairs with traffic on
// the given UTC day.
func (r *Repository) ActivePairs(ctx context.Context, day time.Time) ([]Pair, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	var pairs []Pair
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryLog{}).
		Distinct("tenant_id", "platform").
		Where("attempted_at >= ? AND attempted_at < ?", start, end).
		Find(&pairs).Error
	return pairs, err
}

// Upsert replaces the stat row for (tenant, platform, date) wholesale.
func (r *Repository) Upsert(ctx context.Context, stat *models.DailyStat) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "platform"},
				{Name: "stat_date"},
			},
			UpdateAll: true,
		}).
		Create(stat).Error
}

// List returns stat rows for a tenant in the inclusive date range, optionally
// narrowed to one platform.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, from, to time.Time) ([]models.DailyStat, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND stat_date >= ? AND stat_date <= ?",
			tenantID, from.UTC().Truncate(24*time.Hour), to.UTC().Truncate(24*time.Hour)).
		Order("stat_date ASC, platform ASC")
	if platform != nil {
		query = query.Where("platform = ?", platform.String())
	}

	var rows []models.DailyStat
	err := query.Find(&rows).Error
	return rows, err
}

// Pair is one (tenant, platform) combination with recorded traffic.
type Pair struct {
	TenantID uuid.UUID      `gorm:"column:tenant_id"`
	Platform enums.Platform `gorm:"column:platform"`
}
