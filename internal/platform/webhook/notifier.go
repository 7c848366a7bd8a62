// Package webhook delivers escalation notifications to an external on-call
// endpoint. Payloads are HMAC-SHA256 signed and deliveries retry with
// backoff; delivery is best-effort and never blocks the message pipeline.
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
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is the envelope POSTed to the endpoint.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// SignPayload computes the hex-encoded HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the HMAC-SHA256 of
// payload under secret. Exported for receivers validating deliveries.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient overrides the default HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.httpClient = c }
}

// WithMaxAttempts sets the total number of delivery attempts per event.
func WithMaxAttempts(attempts int) Option {
	return func(n *Notifier) { n.maxAttempts = attempts }
}

// Notifier POSTs signed events to a single configured endpoint.
type Notifier struct {
	url         string
	secret      string
	httpClient  *http.Client
	maxAttempts int
	retryDelays []time.Duration
	logger      zerolog.Logger
}

func NewNotifier(url, secret string, logger zerolog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxAttempts: 3,
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second},
		logger:      logger,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Notify delivers the event, retrying on failure. Errors are logged and
// swallowed; the caller's workflow has already committed.
func (n *Notifier) Notify(ctx context.Context, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error().Err(err).Str("event_type", eventType).Msg("webhook payload marshal failed")
		return
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   body,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error().Err(err).Str("event_type", eventType).Msg("webhook event marshal failed")
		return
	}

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		err := n.deliver(ctx, event.ID, data)
		if err == nil {
			return
		}
		n.logger.Warn().Err(err).Str("event_id", event.ID).Int("attempt", attempt).
			Msg("webhook delivery failed")

		if attempt < n.maxAttempts {
			var delay time.Duration
			if len(n.retryDelays) > 0 {
				delay = n.retryDelays[len(n.retryDelays)-1]
				if attempt-1 < len(n.retryDelays) {
					delay = n.retryDelays[attempt-1]
				}
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}
	n.logger.Error().Str("event_id", event.ID).Str("event_type", eventType).
		Msg("webhook delivery abandoned")
}

func (n *Notifier) deliver(ctx context.Context, eventID string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-ID", eventID)
	req.Header.Set("X-Webhook-Timestamp", time.Now().UTC().Format(time.RFC3339))
	if n.secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+SignPayload(data, n.secret))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return nil
}
