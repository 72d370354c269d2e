package model

import (
	"time"

	"github.com/bandhanapp/backend/internal/domain/enums"
)

type AdminAlert struct {
	Subject        string              `json:"subject"`
	Details        string              `json:"details"`
	MessagePreview string              `json:"message_preview,omitempty"`
	Severity       enums.AlertSeverity `json:"severity"`
	Timestamp      time.Time           `json:"timestamp"`
}
