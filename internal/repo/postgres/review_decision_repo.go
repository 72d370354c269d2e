package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewDecisionRepo records every admin resolution of a held message.
type ReviewDecisionRepo struct {
	pool *pgxpool.Pool
}

func NewReviewDecisionRepo(pool *pgxpool.Pool) *ReviewDecisionRepo {
	return &ReviewDecisionRepo{pool: pool}
}

func (r *ReviewDecisionRepo) Create(ctx context.Context, senderID, recipientID int64, message, decision string, adminID int64, notes string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if senderID <= 0 || recipientID <= 0 || decision == "" {
		return fmt.Errorf("invalid review decision payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO whatsapp_admin_reviews (
	sender_id,
	recipient_id,
	message_content,
	decision,
	admin_id,
	admin_notes,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, NOW())
`, senderID, recipientID, message, decision, adminID, notes); err != nil {
		return fmt.Errorf("create review decision: %w", err)
	}

	return nil
}
