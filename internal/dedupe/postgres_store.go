package dedupe

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
)

// PostgresStore claims dedupe keys with an insert guarded by the unique
// (tenant, platform, key) index. Expired rows are treated as absent and
// reclaimed in place; a background sweep purges them in batches.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore builds the Postgres-backed dedupe store.
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db handle is required")
	}
	return &PostgresStore{db: db}, nil
}

// TryClaim claims the key atomically. The ON CONFLICT arm only fires for
// expired rows, so a live claim blocks concurrent callers.
func (s *PostgresStore) TryClaim(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, key string, ttl time.Duration) (bool, error) {
	if tenantID == uuid.Nil || key == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and dedupe key are required")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	result := s.db.WithContext(ctx).Exec(`
		INSERT INTO dedupe_records (tenant_id, platform, dedupe_key, first_seen_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, platform, dedupe_key) DO UPDATE
		SET first_seen_at = EXCLUDED.first_seen_at, expires_at = EXCLUDED.expires_at
		WHERE dedupe_records.expires_at <= EXCLUDED.first_seen_at`,
		tenantID, platform.String(), key, now, expiresAt)
	if result.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "claim dedupe key")
	}
	return result.RowsAffected == 1, nil
}

// SweepExpired deletes up to batchSize expired records and reports how many
// rows were removed.
func (s *PostgresStore) SweepExpired(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	result := s.db.WithContext(ctx).Exec(`
		DELETE FROM dedupe_records
		WHERE id IN (
			SELECT id FROM dedupe_records
			WHERE expires_at <= now()
			LIMIT ?
		)`, batchSize)
	if result.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "sweep expired dedupe records")
	}
	return result.RowsAffected, nil
}

// CountActive returns the number of unexpired claims for a tenant.
func (s *PostgresStore) CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.DedupeRecord{}).
		Where("tenant_id = ? AND expires_at > now()", tenantID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active dedupe records")
	}
	return count, nil
}
