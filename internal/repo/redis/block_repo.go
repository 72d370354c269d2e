package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bandhanapp/backend/internal/domain/enums"
)

// strikeScript increments the sender's strike counter and, once the ban
// threshold is reached, atomically replaces the counter with a block flag so
// a burst of concurrent violations cannot double-count past the ban.
const strikeScript = `
local strikes = KEYS[1]
local block = KEYS[2]
local threshold = tonumber(ARGV[1])
local ttl_sec = tonumber(ARGV[2])
local reason = ARGV[3]

local count = redis.call("INCR", strikes)
local banned = 0
if threshold > 0 and count >= threshold then
	redis.call("DEL", strikes)
	redis.call("SET", block, reason, "EX", ttl_sec)
	banned = 1
end

return {count, banned}
`

// BlockRepo holds the per-sender strike counter and the block flag. The block
// flag value carries the block reason ("auto" or "manual"); auto and manual
// blocks differ only in the TTL passed by the caller.
type BlockRepo struct {
	client *goredis.Client
}

func NewBlockRepo(client *goredis.Client) *BlockRepo {
	return &BlockRepo{client: client}
}

// RegisterStrike adds one strike and reports the running count plus whether
// this strike crossed the auto-ban threshold.
func (r *BlockRepo) RegisterStrike(ctx context.Context, userID int64, threshold int, blockTTL time.Duration) (int, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if threshold <= 0 || blockTTL <= 0 {
		return 0, false, fmt.Errorf("invalid strike parameters")
	}

	raw, err := r.client.Eval(ctx, strikeScript,
		[]string{strikeKey(userID), blockKey(userID)},
		threshold,
		int(blockTTL/time.Second),
		string(enums.BlockReasonAuto),
	).Result()
	if err != nil {
		return 0, false, fmt.Errorf("eval strike script: %w", err)
	}

	arr, ok := raw.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, false, fmt.Errorf("unexpected strike script result")
	}
	count, ok := arr[0].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected strike count value")
	}
	banned, ok := arr[1].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected strike ban value")
	}

	return int(count), banned == 1, nil
}

func (r *BlockRepo) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}

	_, err := r.client.Get(ctx, blockKey(userID)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get block flag: %w", err)
	}
	return true, nil
}

// Block sets the block flag; the single write path for both auto-ban and
// manual admin action.
func (r *BlockRepo) Block(ctx context.Context, userID int64, reason enums.BlockReason, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || ttl <= 0 {
		return fmt.Errorf("invalid block payload")
	}

	if err := r.client.Set(ctx, blockKey(userID), string(reason), ttl).Err(); err != nil {
		return fmt.Errorf("set block flag: %w", err)
	}
	return nil
}

func (r *BlockRepo) Unblock(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if err := r.client.Del(ctx, blockKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete block flag: %w", err)
	}
	return nil
}

func strikeKey(userID int64) string {
	return "whatsapp:strikes:" + strconv.FormatInt(userID, 10)
}

func blockKey(userID int64) string {
	return "whatsapp:blocked:" + strconv.FormatInt(userID, 10)
}
