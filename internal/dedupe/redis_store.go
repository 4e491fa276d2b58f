package dedupe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/redis"
)

// RedisStore claims dedupe keys through SET NX with a TTL. Expiry is native,
// so no sweep is needed.
type RedisStore struct {
	claims redis.ClaimStore
}

// NewRedisStore builds the Redis-backed dedupe store.
func NewRedisStore(claims redis.ClaimStore) (*RedisStore, error) {
	if claims == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redis claim store is required")
	}
	return &RedisStore{claims: claims}, nil
}

// TryClaim atomically claims (tenant, platform, key) for the TTL window.
func (s *RedisStore) TryClaim(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, key string, ttl time.Duration) (bool, error) {
	if tenantID == uuid.Nil || key == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and dedupe key are required")
	}
	redisKey := s.claims.DedupeKey(tenantID.String(), platform.String(), key)
	claimed, err := s.claims.SetNX(ctx, redisKey, time.Now().UTC().Format(time.RFC3339), ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim dedupe key")
	}
	return claimed, nil
}
