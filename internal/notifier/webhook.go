package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"petanco-intake-api/internal/events"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/metrics"
)

const channelWebhook = "webhook"

// WebhookNotifier POSTs the outcome payload to the URL configured for that
// outcome. Delivery is attempted once.
type WebhookNotifier struct {
	client     *http.Client
	successURL string
	failureURL string
	log        logger.Logger
	now        func() time.Time
}

func NewWebhookNotifier(successURL, failureURL string, timeout time.Duration, log logger.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client:     &http.Client{Timeout: timeout},
		successURL: successURL,
		failureURL: failureURL,
		log:        log,
		now:        time.Now,
	}
}

// Enabled reports whether any receiver is configured.
func (n *WebhookNotifier) Enabled() bool {
	return n.successURL != "" || n.failureURL != ""
}

// Notify delivers the outcome. A missing URL for the outcome is not an error.
func (n *WebhookNotifier) Notify(ctx context.Context, outcome events.SubmissionOutcome) error {
	url := n.failureURL
	if outcome.Succeeded() {
		url = n.successURL
	}
	if url == "" {
		return nil
	}

	body, err := json.Marshal(NewPayload(outcome, n.now()))
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues(channelWebhook, "error").Inc()
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues(channelWebhook, "error").Inc()
		return fmt.Errorf("webhook delivery to %s failed: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.WebhookDeliveriesTotal.WithLabelValues(channelWebhook, "rejected").Inc()
		return fmt.Errorf("webhook receiver %s responded %d", url, resp.StatusCode)
	}

	metrics.WebhookDeliveriesTotal.WithLabelValues(channelWebhook, "delivered").Inc()
	n.log.Debug("webhook delivered", map[string]interface{}{
		"url":    url,
		"status": resp.StatusCode,
	})
	return nil
}

// Handle adapts Notify to an events.Handler.
func (n *WebhookNotifier) Handle(ctx context.Context, e events.Event) error {
	outcome, ok := outcomeOf(e)
	if !ok {
		return nil
	}
	return n.Notify(ctx, outcome)
}

// Subscribe registers the notifier for both outcome events.
func (n *WebhookNotifier) Subscribe(m *events.Manager) {
	m.Subscribe(events.EventSubmissionSucceeded, n.Handle)
	m.Subscribe(events.EventSubmissionFailed, n.Handle)
}
