package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TierCacheRepo caches resolved subscription tiers so the entitlement check
// does not hit postgres on every send.
type TierCacheRepo struct {
	client *goredis.Client
}

func NewTierCacheRepo(client *goredis.Client) *TierCacheRepo {
	return &TierCacheRepo{client: client}
}

func (r *TierCacheRepo) Get(ctx context.Context, userID int64) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return "", false, fmt.Errorf("invalid user id")
	}

	tier, err := r.client.Get(ctx, tierKey(userID)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cached tier: %w", err)
	}

	return tier, true, nil
}

func (r *TierCacheRepo) Set(ctx context.Context, userID int64, tier string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || tier == "" || ttl <= 0 {
		return fmt.Errorf("invalid tier cache payload")
	}

	if err := r.client.Set(ctx, tierKey(userID), tier, ttl).Err(); err != nil {
		return fmt.Errorf("cache tier: %w", err)
	}
	return nil
}

func tierKey(userID int64) string {
	return "user:tier:" + strconv.FormatInt(userID, 10)
}
