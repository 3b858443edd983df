package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxResponseBodyBytes = 1024

// Event is the JSON envelope posted to the webhook endpoint.
type Event struct {
	Name      string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Client posts signed events to a single endpoint with retries. Each attempt
// is logged.
type Client struct {
	url         string
	secret      string
	http        *http.Client
	retryDelays []time.Duration
}

func New(url, secret string) *Client {
	return &Client{
		url:         url,
		secret:      secret,
		http:        &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{1 * time.Second, 4 * time.Second},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// SignPayload computes HMAC-SHA256 of the payload using the secret.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Dispatch sends an event with up to 3 attempts.
func (c *Client) Dispatch(ctx context.Context, event Event) error {
	if !c.Enabled() {
		slog.Debug("webhook: no endpoint configured, dropping event", "event", event.Name)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	signature := SignPayload(c.secret, body)
	maxAttempts := 1 + len(c.retryDelays)
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		statusCode, respBody, err := c.doPost(ctx, body, signature)
		logDelivery(event.Name, statusCode, respBody, attempt, err)

		if err == nil && statusCode >= 200 && statusCode < 300 {
			return nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("webhook returned status %d", statusCode)
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(c.retryDelays[attempt-1]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

func (c *Client) doPost(ctx context.Context, body []byte, signature string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes+1))
	if len(respBytes) > maxResponseBodyBytes {
		respBytes = respBytes[:maxResponseBodyBytes]
	}
	return resp.StatusCode, string(respBytes), nil
}

func logDelivery(event string, statusCode int, responseBody string, attempt int, err error) {
	if err != nil {
		slog.Warn("webhook: delivery failed", "event", event, "attempt", attempt, "error", err)
		return
	}
	level := slog.LevelInfo
	if statusCode < 200 || statusCode >= 300 {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "webhook: delivered",
		"event", event, "attempt", attempt, "status", statusCode, "response", responseBody)
}
