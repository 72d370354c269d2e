package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const costKeyPrefix = "whatsapp:cost:"

// CostRepo accumulates per-user channel spend per calendar month. Keys carry
// a TTL so ledgers age out two months after their last activity; totals are
// never decremented.
type CostRepo struct {
	client *goredis.Client
}

type UserCost struct {
	UserID int64
	Cost   float64
}

func NewCostRepo(client *goredis.Client) *CostRepo {
	return &CostRepo{client: client}
}

// IncrMonthly adds cost to the user's ledger for the given month ("200601")
// and returns the new running total.
func (r *CostRepo) IncrMonthly(ctx context.Context, userID int64, month string, cost float64, ttl time.Duration) (float64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || month == "" || cost < 0 {
		return 0, fmt.Errorf("invalid cost payload")
	}

	key := costKey(userID, month)
	total, err := r.client.IncrByFloat(ctx, key, cost).Result()
	if err != nil {
		return 0, fmt.Errorf("increment cost ledger: %w", err)
	}
	if ttl > 0 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("set cost ledger ttl: %w", err)
		}
	}

	return total, nil
}

func (r *CostRepo) GetMonthly(ctx context.Context, userID int64, month string) (float64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || month == "" {
		return 0, fmt.Errorf("invalid cost lookup")
	}

	raw, err := r.client.Get(ctx, costKey(userID, month)).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cost ledger: %w", err)
	}

	total, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cost ledger value: %w", err)
	}
	return total, nil
}

// ListMonth scans all per-user ledgers for one month.
func (r *CostRepo) ListMonth(ctx context.Context, month string) ([]UserCost, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if month == "" {
		return nil, fmt.Errorf("month is required")
	}

	var (
		costs  []UserCost
		cursor uint64
	)
	pattern := costKeyPrefix + "*:" + month

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan cost ledgers: %w", err)
		}

		for _, key := range keys {
			parts := strings.Split(key, ":")
			if len(parts) != 4 {
				continue
			}
			userID, err := strconv.ParseInt(parts[2], 10, 64)
			if err != nil {
				continue
			}

			raw, err := r.client.Get(ctx, key).Result()
			if err == goredis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get cost ledger %s: %w", key, err)
			}
			total, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("parse cost ledger %s: %w", key, err)
			}

			costs = append(costs, UserCost{UserID: userID, Cost: total})
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return costs, nil
}

func costKey(userID int64, month string) string {
	return costKeyPrefix + strconv.FormatInt(userID, 10) + ":" + month
}
