package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bandhanapp/backend/internal/domain/model"
)

const (
	reviewIDsKey     = "whatsapp:review:ids"
	reviewItemPrefix = "whatsapp:review:item:"
)

// claimScript removes one review item by id. Delete-then-unlink runs as a
// single script so two admins resolving the same id cannot both win; the
// loser gets nil back.
const claimScript = `
local item = KEYS[1]
local ids = KEYS[2]
local id = ARGV[1]

local payload = redis.call("GET", item)
if not payload then
	return false
end
redis.call("DEL", item)
redis.call("LREM", ids, 1, id)
return payload
`

// ReviewQueueRepo is the FIFO holding area for messages awaiting human
// sign-off. Items are addressed by the generated id, never by position.
type ReviewQueueRepo struct {
	client *goredis.Client
}

func NewReviewQueueRepo(client *goredis.Client) *ReviewQueueRepo {
	return &ReviewQueueRepo{client: client}
}

func (r *ReviewQueueRepo) Enqueue(ctx context.Context, item model.ReviewItem) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(item.ID) == "" || item.SenderID <= 0 {
		return fmt.Errorf("invalid review item payload")
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal review item: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, reviewItemKey(item.ID), payload, 0)
	pipe.RPush(ctx, reviewIDsKey, item.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue review item: %w", err)
	}

	return nil
}

// ListPending returns a page of queued items in FIFO order. Ids whose payload
// was claimed mid-listing are skipped.
func (r *ReviewQueueRepo) ListPending(ctx context.Context, offset, limit int) ([]model.ReviewItem, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	ids, err := r.client.LRange(ctx, reviewIDsKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list review ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	items := make([]model.ReviewItem, 0, len(ids))
	for _, id := range ids {
		payload, err := r.client.Get(ctx, reviewItemKey(id)).Result()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get review item %s: %w", id, err)
		}

		var item model.ReviewItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("unmarshal review item %s: %w", id, err)
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *ReviewQueueRepo) Count(ctx context.Context) (int, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	n, err := r.client.LLen(ctx, reviewIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count review items: %w", err)
	}
	return int(n), nil
}

// Claim atomically removes and returns the item with the given id. The second
// claim of the same id reports ok=false.
func (r *ReviewQueueRepo) Claim(ctx context.Context, id string) (model.ReviewItem, bool, error) {
	if r.client == nil {
		return model.ReviewItem{}, false, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return model.ReviewItem{}, false, fmt.Errorf("review id is required")
	}

	raw, err := r.client.Eval(ctx, claimScript, []string{reviewItemKey(id), reviewIDsKey}, id).Result()
	if err == goredis.Nil {
		return model.ReviewItem{}, false, nil
	}
	if err != nil {
		return model.ReviewItem{}, false, fmt.Errorf("claim review item: %w", err)
	}

	payload, ok := raw.(string)
	if !ok {
		return model.ReviewItem{}, false, fmt.Errorf("unexpected claim script result")
	}

	var item model.ReviewItem
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return model.ReviewItem{}, false, fmt.Errorf("unmarshal claimed review item: %w", err)
	}

	return item, true, nil
}

// Restore puts a claimed item back at the head of the queue. Used when
// admin-approved delivery fails after the claim; the message must not be
// silently dropped.
func (r *ReviewQueueRepo) Restore(ctx context.Context, item model.ReviewItem) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("invalid review item payload")
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal review item: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, reviewItemKey(item.ID), payload, 0)
	pipe.LPush(ctx, reviewIDsKey, item.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("restore review item: %w", err)
	}

	return nil
}

func reviewItemKey(id string) string {
	return reviewItemPrefix + id
}
