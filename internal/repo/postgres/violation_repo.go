package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bandhanapp/backend/internal/domain/enums"
	"github.com/bandhanapp/backend/internal/domain/model"
)

// ViolationRepo is an append-only audit trail of blocked messages. Rows are
// never updated or deleted.
type ViolationRepo struct {
	pool *pgxpool.Pool
}

func NewViolationRepo(pool *pgxpool.Pool) *ViolationRepo {
	return &ViolationRepo{pool: pool}
}

func (r *ViolationRepo) Create(ctx context.Context, senderID, recipientID int64, message, reason string, severity enums.ViolationSeverity) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if senderID <= 0 || recipientID <= 0 {
		return fmt.Errorf("invalid violation payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO content_violations (
	sender_id,
	recipient_id,
	message_content,
	violation_reason,
	severity,
	created_at
) VALUES ($1, $2, $3, $4, $5, NOW())
`, senderID, recipientID, message, reason, string(severity)); err != nil {
		return fmt.Errorf("create content violation: %w", err)
	}

	return nil
}

func (r *ViolationRepo) ListRecent(ctx context.Context, limit int) ([]model.Violation, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, sender_id, recipient_id, message_content, violation_reason, severity, created_at
FROM content_violations
ORDER BY created_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list content violations: %w", err)
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		var severity string
		if err := rows.Scan(&v.ID, &v.SenderID, &v.RecipientID, &v.Message, &v.Reason, &severity, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan content violation: %w", err)
		}
		v.Severity = enums.ViolationSeverity(severity)
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content violations: %w", err)
	}

	return violations, nil
}
