package notify

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

	"license-server/pkg/logging"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-License-Signature"

// WebhookSink tells the merchant backend that a license was issued.
type WebhookSink struct {
	callbackURL string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
}

// NewWebhookSink creates a webhook sink.
// Retry schedule: 1s, 5s, 30s (3 attempts total)
func NewWebhookSink(callbackURL, secret string) *WebhookSink {
	return &WebhookSink{
		callbackURL: callbackURL,
		secret:      secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// WebhookPayload represents the payload sent to the merchant backend
type WebhookPayload struct {
	Event      string `json:"event"` // "license.issued"
	OrderNo    string `json:"order_no"`
	LicenseKey string `json:"license_key"`
	Email      string `json:"email"`
	DeviceID   string `json:"device_id,omitempty"`
	IssuedAt   string `json:"issued_at"` // ISO 8601 format
	Timestamp  string `json:"timestamp"` // ISO 8601 format
}

func (wn *WebhookSink) Name() string { return "webhook" }

// Send posts the notice, retrying on failure until the schedule or ctx runs out.
func (wn *WebhookSink) Send(ctx context.Context, n Notice) error {
	payload := WebhookPayload{
		Event:      "license.issued",
		OrderNo:    n.OrderNo,
		LicenseKey: n.LicenseKey,
		Email:      n.Email,
		DeviceID:   n.DeviceID,
		IssuedAt:   n.IssuedAt.Format(time.RFC3339),
		Timestamp:  time.Now().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	maxAttempts := len(wn.retryDelays)
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = wn.sendWebhook(ctx, body)
		if err == nil {
			return nil
		}

		logging.Warnf("Webhook notification failed - url: %s, order: %s, attempt: %d, error: %v",
			wn.callbackURL, n.OrderNo, attempt+1, err)

		// If not the last attempt, wait before retry
		if attempt < maxAttempts-1 {
			select {
			case <-time.After(wn.retryDelays[attempt]):
			case <-ctx.Done():
				return fmt.Errorf("webhook retries interrupted: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", maxAttempts, err)
}

// sendWebhook sends a single webhook request
func (wn *WebhookSink) sendWebhook(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "LicenseServer-Webhook/1.0")

	// Add signature if secret is provided
	if wn.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, wn.secret))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
