package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bandhanapp/backend/internal/domain/model"
)

const (
	alertsKey     = "admin:alerts"
	maxAlertsKept = 100
)

// AlertRepo is the admin live feed: a capped list, newest first, oldest
// evicted past maxAlertsKept.
type AlertRepo struct {
	client *goredis.Client
}

func NewAlertRepo(client *goredis.Client) *AlertRepo {
	return &AlertRepo{client: client}
}

func (r *AlertRepo) Push(ctx context.Context, alert model.AdminAlert) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if alert.Subject == "" {
		return fmt.Errorf("alert subject is required")
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal admin alert: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, alertsKey, payload)
	pipe.LTrim(ctx, alertsKey, 0, maxAlertsKept-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push admin alert: %w", err)
	}

	return nil
}

func (r *AlertRepo) List(ctx context.Context, limit int) ([]model.AdminAlert, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if limit <= 0 || limit > maxAlertsKept {
		limit = maxAlertsKept
	}

	raw, err := r.client.LRange(ctx, alertsKey, 0, int64(limit-1)).Result()
	if err != nil && err != goredis.Nil {
		return nil, fmt.Errorf("list admin alerts: %w", err)
	}

	alerts := make([]model.AdminAlert, 0, len(raw))
	for _, payload := range raw {
		var alert model.AdminAlert
		if err := json.Unmarshal([]byte(payload), &alert); err != nil {
			return nil, fmt.Errorf("unmarshal admin alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}
