package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const failuresKey = "whatsapp:send_failures"

// failureScript counts delivery failures inside a rolling window and resets
// the counter when the alert threshold is hit, so the alert fires once per
// burst rather than on every failure past the threshold.
const failureScript = `
local key = KEYS[1]
local threshold = tonumber(ARGV[1])
local window_sec = tonumber(ARGV[2])

local count = redis.call("INCR", key)
redis.call("EXPIRE", key, window_sec)

local hit = 0
if threshold > 0 and count >= threshold then
	redis.call("DEL", key)
	hit = 1
end

return {count, hit}
`

// FailureRepo tracks the global (not per-user) send failure counter.
type FailureRepo struct {
	client *goredis.Client
}

func NewFailureRepo(client *goredis.Client) *FailureRepo {
	return &FailureRepo{client: client}
}

// Register adds one failure and reports the count plus whether the threshold
// was reached (which also resets the counter).
func (r *FailureRepo) Register(ctx context.Context, threshold int, window time.Duration) (int, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if threshold <= 0 || window <= 0 {
		return 0, false, fmt.Errorf("invalid failure counter parameters")
	}

	raw, err := r.client.Eval(ctx, failureScript, []string{failuresKey}, threshold, int(window/time.Second)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("eval failure script: %w", err)
	}

	arr, ok := raw.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, false, fmt.Errorf("unexpected failure script result")
	}
	count, ok := arr[0].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected failure count value")
	}
	hit, ok := arr[1].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected failure threshold value")
	}

	return int(count), hit == 1, nil
}
