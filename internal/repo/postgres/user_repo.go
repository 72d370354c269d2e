package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNoWhatsAppNumber = errors.New("user has no whatsapp number")
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// GetTier returns the raw subscription tier string stored on the user row.
// Missing users resolve to the free tier rather than an error; the tier is a
// capability input, not an identity check.
func (r *UserRepo) GetTier(ctx context.Context, userID int64) (string, error) {
	if r.pool == nil {
		return "", fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id")
	}

	var tier *string
	err := r.pool.QueryRow(ctx, `
SELECT subscription_tier
FROM users
WHERE id = $1
`, userID).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "free", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user tier: %w", err)
	}
	if tier == nil || strings.TrimSpace(*tier) == "" {
		return "free", nil
	}

	return *tier, nil
}

// GetWhatsAppNumber returns the user's WhatsApp number in E.164 form.
func (r *UserRepo) GetWhatsAppNumber(ctx context.Context, userID int64) (string, error) {
	if r.pool == nil {
		return "", fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id")
	}

	var phone *string
	err := r.pool.QueryRow(ctx, `
SELECT whatsapp
FROM users
WHERE id = $1
`, userID).Scan(&phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get user whatsapp number: %w", err)
	}
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return "", ErrNoWhatsAppNumber
	}

	return strings.TrimSpace(*phone), nil
}
