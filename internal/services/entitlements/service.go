package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bandhanapp/backend/internal/domain/enums"
	"github.com/bandhanapp/backend/internal/domain/rules"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrForbiddenTier = errors.New("tier cannot use the whatsapp channel")
)

type TierStore interface {
	GetTier(ctx context.Context, userID int64) (string, error)
}

type TierCache interface {
	Get(ctx context.Context, userID int64) (string, bool, error)
	Set(ctx context.Context, userID int64, tier string, ttl time.Duration) error
}

type Config struct {
	TierCacheTTL time.Duration
}

// Service resolves a user's channel entitlement from their subscription tier.
// The tier itself is the only authoritative state; the entitlement is
// recomputed on every check, with the tier cached for a short window.
type Service struct {
	store TierStore
	cache TierCache
	cfg   Config
}

func NewService(store TierStore, cache TierCache, cfg Config) *Service {
	if cfg.TierCacheTTL <= 0 {
		cfg.TierCacheTTL = time.Hour
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

func (s *Service) Resolve(ctx context.Context, userID int64) (rules.Entitlement, error) {
	if userID <= 0 {
		return rules.Entitlement{}, ErrValidation
	}
	if s.store == nil {
		return rules.Entitlement{}, fmt.Errorf("tier store is nil")
	}

	tier, err := s.lookupTier(ctx, userID)
	if err != nil {
		return rules.Entitlement{}, err
	}

	return rules.EntitlementForTier(tier), nil
}

// AdmitSend is the pre-moderation gate: it rejects senders whose tier lacks
// the channel before any content inspection runs.
func (s *Service) AdmitSend(ctx context.Context, userID int64) (rules.Entitlement, error) {
	ent, err := s.Resolve(ctx, userID)
	if err != nil {
		return rules.Entitlement{}, err
	}
	if !ent.CanSend {
		return ent, ErrForbiddenTier
	}
	return ent, nil
}

func (s *Service) lookupTier(ctx context.Context, userID int64) (enums.Tier, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err == nil && ok {
			return enums.ParseTier(cached), nil
		}
	}

	raw, err := s.store.GetTier(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve user tier: %w", err)
	}
	tier := enums.ParseTier(raw)

	if s.cache != nil {
		_ = s.cache.Set(ctx, userID, string(tier), s.cfg.TierCacheTTL)
	}

	return tier, nil
}
