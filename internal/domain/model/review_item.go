package model

import "time"

// ReviewItem is one outbound message held for human sign-off. ID is assigned
// at enqueue time and is the only handle used to resolve the item.
type ReviewItem struct {
	ID          string    `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Message     string    `json:"message"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}
