package deadletter

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/pagination"
)

// Repository encapsulates dead letter persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a dead letter repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert persists a new dead letter entry.
func (r *Repository) Insert(ctx context.Context, entry *models.DeadLetter) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByID loads one entry.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeadLetter, error) {
	var entry models.DeadLetter
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListPending returns a cursor page of pending entries for a tenant,
// optionally narrowed to one platform.
func (r *Repository) ListPending(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, cursor string, limit int) ([]models.DeadLetter, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)

	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, enums.DeadLetterStatusPending).
		Order("created_at DESC, id DESC").
		Limit(limitWithBuffer)
	if platform != nil {
		query = query.Where("platform = ?", platform.String())
	}
	if decodedCursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var entries []models.DeadLetter
	if err := query.Find(&entries).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(entries) > normalizedLimit {
		entries = entries[:normalizedLimit]
		last := entries[len(entries)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, nextCursor, nil
}

// ListReprocessable returns pending entries across all tenants for the
// background replay job, oldest failures first.
func (r *Repository) ListReprocessable(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	var entries []models.DeadLetter
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", enums.DeadLetterStatusPending).
		Order("last_failure_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// MarkRetrying flags the entry while a reprocess attempt is in flight.
func (r *Repository) MarkRetrying(ctx context.Context, id uuid.UUID) error {
	return r.updateStatus(ctx, id, enums.DeadLetterStatusRetrying, map[string]any{})
}

// MarkRecovered records a successful reprocess.
func (r *Repository) MarkRecovered(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateStatus(ctx, id, enums.DeadLetterStatusRecovered, map[string]any{
		"recovered_at": at,
	})
}

// MarkAbandoned records the operator decision to stop retrying.
func (r *Repository) MarkAbandoned(ctx context.Context, id uuid.UUID) error {
	return r.updateStatus(ctx, id, enums.DeadLetterStatusAbandoned, map[string]any{})
}

// RecordFailure moves a retrying entry back to pending with the failure noted.
func (r *Repository) RecordFailure(ctx context.Context, id uuid.UUID, reason string, category enums.ErrorCategory, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.DeadLetter{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           enums.DeadLetterStatusPending,
			"retry_count":      gorm.Expr("retry_count + 1"),
			"failure_reason":   reason,
			"failure_category": category,
			"last_failure_at":  at,
			"updated_at":       at,
		}).Error
}

func (r *Repository) updateStatus(ctx context.Context, id uuid.UUID, status enums.DeadLetterStatus, extra map[string]any) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	for column, value := range extra {
		updates[column] = value
	}
	return r.db.WithContext(ctx).
		Model(&models.DeadLetter{}).
		Where("id = ?", id).
		Updates(updates).Error
}
