package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Message log statuses. "approved" is written by the decision engine when a
// message clears moderation; "sent" and "sent_after_review" are written once
// the provider accepted the message.
const (
	MessageStatusApproved        = "approved"
	MessageStatusSent            = "sent"
	MessageStatusSentAfterReview = "sent_after_review"
)

type MessageLogRepo struct {
	pool *pgxpool.Pool
}

func NewMessageLogRepo(pool *pgxpool.Pool) *MessageLogRepo {
	return &MessageLogRepo{pool: pool}
}

func (r *MessageLogRepo) Log(ctx context.Context, senderID, recipientID int64, message, status string, providerMessageID *string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if senderID <= 0 || recipientID <= 0 || status == "" {
		return fmt.Errorf("invalid message log payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO whatsapp_message_log (
	sender_id,
	recipient_id,
	message_content,
	whatsapp_message_id,
	status,
	created_at
) VALUES ($1, $2, $3, $4, $5, NOW())
`, senderID, recipientID, message, providerMessageID, status); err != nil {
		return fmt.Errorf("log whatsapp message: %w", err)
	}

	return nil
}
