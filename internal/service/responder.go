package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookResponder forwards a user message to the external automation
// webhook and returns the assistant reply text. The webhook contract is one
// POST per turn with the full reply in the response body; streaming from the
// upstream is not part of the contract.
type WebhookResponder struct {
	url    string
	client *http.Client
}

func NewWebhookResponder(url string, timeout time.Duration) *WebhookResponder {
	return &WebhookResponder{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Content        string `json:"content"`
}

type webhookResponse struct {
	Response string `json:"response"`
}

// Ask performs the webhook call. An empty response body or empty reply field
// is a valid empty reply, not an error.
func (r *WebhookResponder) Ask(ctx context.Context, conversationID, userID, content string) (string, error) {
	body, err := json.Marshal(webhookRequest{
		ConversationID: conversationID,
		UserID:         userID,
		Content:        content,
	})
	if err != nil {
		return "", fmt.Errorf("marshal webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read webhook response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}

	var parsed webhookResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode webhook response: %w", err)
	}
	return parsed.Response, nil
}
