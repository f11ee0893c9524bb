package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookAdapter POSTs alerts as JSON to a configured URL. When a secret is
// set, the payload is HMAC-SHA256 signed so receivers can verify origin.
type WebhookAdapter struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookAdapter creates a webhook adapter.
func NewWebhookAdapter(url, secret string) *WebhookAdapter {
	return &WebhookAdapter{
		url:    url,
		secret: secret,
		// The dispatcher enforces the per-send timeout via ctx; this is a
		// backstop for callers using the adapter directly.
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *WebhookAdapter) Name() string { return "webhook" }

func (a *WebhookAdapter) Send(ctx context.Context, alert *Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-TiltCheck-Event", "alert."+alert.Level)
	req.Header.Set("X-TiltCheck-Timestamp", fmt.Sprintf("%d", alert.At.Unix()))
	if a.secret != "" {
		req.Header.Set("X-TiltCheck-Signature", a.sign(payload))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func (a *WebhookAdapter) sign(payload []byte) string {
	h := hmac.New(sha256.New, []byte(a.secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
