package entitlements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bandhanapp/backend/internal/domain/enums"
)

type memoryTierStore struct {
	tiers map[int64]string
	calls int
}

func (s *memoryTierStore) GetTier(_ context.Context, userID int64) (string, error) {
	s.calls++
	return s.tiers[userID], nil
}

type memoryTierCache struct {
	values map[int64]string
	sets   int
}

func newMemoryTierCache() *memoryTierCache {
	return &memoryTierCache{values: make(map[int64]string)}
}

func (c *memoryTierCache) Get(_ context.Context, userID int64) (string, bool, error) {
	v, ok := c.values[userID]
	return v, ok, nil
}

func (c *memoryTierCache) Set(_ context.Context, userID int64, tier string, _ time.Duration) error {
	c.values[userID] = tier
	c.sets++
	return nil
}

func TestResolvePopulatesCache(t *testing.T) {
	store := &memoryTierStore{tiers: map[int64]string{42: "premium"}}
	cache := newMemoryTierCache()
	service := NewService(store, cache, Config{})

	ctx := context.Background()
	ent, err := service.Resolve(ctx, 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ent.Tier != enums.TierPremium || !ent.CanSend {
		t.Fatalf("unexpected entitlement: %+v", ent)
	}
	if cache.sets != 1 {
		t.Fatalf("expected cache fill, got %d sets", cache.sets)
	}

	if _, err := service.Resolve(ctx, 42); err != nil {
		t.Fatalf("resolve from cache: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected cached second lookup, got %d store calls", store.calls)
	}
}

func TestAdmitSendRejectsFreeTier(t *testing.T) {
	store := &memoryTierStore{tiers: map[int64]string{42: "free"}}
	service := NewService(store, nil, Config{})

	ent, err := service.AdmitSend(context.Background(), 42)
	if !errors.Is(err, ErrForbiddenTier) {
		t.Fatalf("expected ErrForbiddenTier, got %v", err)
	}
	if ent.Tier != enums.TierFree {
		t.Fatalf("unexpected entitlement: %+v", ent)
	}
}

func TestAdmitSendAllowsElite(t *testing.T) {
	store := &memoryTierStore{tiers: map[int64]string{42: "elite"}}
	service := NewService(store, nil, Config{})

	ent, err := service.AdmitSend(context.Background(), 42)
	if err != nil {
		t.Fatalf("admit send: %v", err)
	}
	if ent.DailyQuota != -1 {
		t.Fatalf("expected unlimited quota, got %d", ent.DailyQuota)
	}
}

func TestResolveUnknownTierDefaultsToFree(t *testing.T) {
	store := &memoryTierStore{tiers: map[int64]string{}}
	service := NewService(store, nil, Config{})

	ent, err := service.Resolve(context.Background(), 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ent.Tier != enums.TierFree || ent.CanSend {
		t.Fatalf("expected free fallback, got %+v", ent)
	}
}

func TestResolveValidation(t *testing.T) {
	service := NewService(&memoryTierStore{}, nil, Config{})
	if _, err := service.Resolve(context.Background(), 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
