package model

import (
	"time"

	"github.com/bandhanapp/backend/internal/domain/enums"
)

type Violation struct {
	ID          int64                   `json:"id"`
	SenderID    int64                   `json:"sender_id"`
	RecipientID int64                   `json:"recipient_id"`
	Message     string                  `json:"message"`
	Reason      string                  `json:"reason"`
	Severity    enums.ViolationSeverity `json:"severity"`
	CreatedAt   time.Time               `json:"created_at"`
}
