package dto

import "time"

type ReviewItemDTO struct {
	ID          string    `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Message     string    `json:"message"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

type PendingReviewsResponse struct {
	Items []ReviewItemDTO `json:"items"`
	Total int             `json:"total"`
}

type ReviewRequest struct {
	ReviewID string `json:"review_id"`
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

type ReviewResponse struct {
	ReviewID          string `json:"review_id"`
	Decision          string `json:"decision"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
}

type ViolationDTO struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Message     string    `json:"message"`
	Reason      string    `json:"reason"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

type ViolationsResponse struct {
	Items []ViolationDTO `json:"items"`
}

type UserCostDTO struct {
	UserID int64   `json:"user_id"`
	Cost   float64 `json:"cost"`
}

type CostsResponse struct {
	Month string        `json:"month"`
	Total float64       `json:"total"`
	Users []UserCostDTO `json:"users"`
}

type AlertDTO struct {
	Subject        string    `json:"subject"`
	Details        string    `json:"details"`
	MessagePreview string    `json:"message_preview,omitempty"`
	Severity       string    `json:"severity"`
	Timestamp      time.Time `json:"timestamp"`
}

type AlertsResponse struct {
	Items []AlertDTO `json:"items"`
}

type BlockStatusResponse struct {
	UserID  int64 `json:"user_id"`
	Blocked bool  `json:"blocked"`
}
