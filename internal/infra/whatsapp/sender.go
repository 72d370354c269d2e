package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Sender calls the WhatsApp Business (Graph) API. When no access token is
// configured the sender reports itself disabled and Send fails fast; the
// moderation pipeline still runs in that mode.
type Sender struct {
	httpClient  *http.Client
	apiURL      string
	accessToken string
}

type Config struct {
	BaseURL       string
	PhoneNumberID string
	AccessToken   string
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func NewSender(httpClient *http.Client, cfg Config) *Sender {
	return &Sender{
		httpClient:  httpClient,
		apiURL:      fmt.Sprintf("%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.PhoneNumberID),
		accessToken: strings.TrimSpace(cfg.AccessToken),
	}
}

func (s *Sender) Enabled() bool {
	return s != nil && s.accessToken != ""
}

// Send delivers one text message and returns the provider message id.
func (s *Sender) Send(ctx context.Context, phone, message string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("whatsapp sender is not configured")
	}
	if s.httpClient == nil {
		return "", fmt.Errorf("http client is nil")
	}
	if strings.TrimSpace(phone) == "" {
		return "", fmt.Errorf("recipient phone is required")
	}

	body, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             textBody{Body: message},
	})
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp api request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("whatsapp api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode whatsapp response: %w", err)
	}
	if len(parsed.Messages) == 0 || parsed.Messages[0].ID == "" {
		return "", fmt.Errorf("whatsapp response has no message id")
	}

	return parsed.Messages[0].ID, nil
}
