package dispatch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// Repository persists delivery log entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a delivery log repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append writes one attempt's log entry.
func (r *Repository) Append(ctx context.Context, entry *models.DeliveryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByEvent returns all attempts recorded for one tenant event, oldest
// first.
func (r *Repository) ListByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) ([]models.DeliveryLog, error) {
	var entries []models.DeliveryLog
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND event_id = ?", tenantID, eventID).
		Order("attempted_at ASC").
		Find(&entries).Error
	return entries, err
}

// CountByStatus returns the number of attempts with the given terminal status
// for a tenant and platform.
func (r *Repository) CountByStatus(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, status enums.DeliveryStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryLog{}).
		Where("tenant_id = ? AND platform = ? AND status = ?", tenantID, platform.String(), status).
		Count(&count).Error
	return count, err
}
