package dto

type SendMessageRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Message     string `json:"message"`
}

type SendMessageResponse struct {
	Status            string  `json:"status"`
	Detail            string  `json:"detail"`
	ProviderMessageID string  `json:"provider_message_id,omitempty"`
	MonthlyCost       float64 `json:"monthly_cost,omitempty"`
}
