package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport delivers alert text to a chat room. Delivery is best effort:
// the poller logs a failed dispatch and moves on, it never retries.
type Transport interface {
	Dispatch(ctx context.Context, room, text string) error
}

// Webhook posts alerts as JSON to a single HTTP endpoint.
type Webhook struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhook creates a webhook transport for url. token, if non-empty, is
// sent as a bearer token.
func NewWebhook(url, token string) *Webhook {
	return &Webhook{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type webhookPayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// Dispatch posts {"room":..., "text":...} to the endpoint. Any non-2xx
// response is an error.
func (w *Webhook) Dispatch(ctx context.Context, room, text string) error {
	body, err := json.Marshal(webhookPayload{Room: room, Text: text})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
