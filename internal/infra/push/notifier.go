package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Notifier posts user-facing notifications to the platform notification
// service. Payload shape matches the internal push API.
type Notifier struct {
	httpClient *http.Client
	baseURL    string
}

type notification struct {
	UserID int64             `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

func NewNotifier(httpClient *http.Client, baseURL string) *Notifier {
	return &Notifier{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.baseURL != ""
}

func (n *Notifier) Notify(ctx context.Context, userID int64, title, body string, data map[string]string) error {
	if !n.Enabled() {
		return fmt.Errorf("push notifier is not configured")
	}
	if n.httpClient == nil {
		return fmt.Errorf("http client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	payload, err := json.Marshal(notification{
		UserID: userID,
		Title:  title,
		Body:   body,
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/internal/push", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification service status %d", resp.StatusCode)
	}
	return nil
}
