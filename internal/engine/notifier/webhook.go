package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier implements Notifier by POSTing events to an external
// endpoint. It is send-only.
type WebhookNotifier struct {
	logger    *zap.Logger
	client    *http.Client
	targetURL string
	role      config.NotifierRole
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a new webhook-based notifier
func NewWebhookNotifier(logger *zap.Logger, cfg config.WebhookConfig, role config.NotifierRole) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &WebhookNotifier{
		logger: logger.Named("notifier.webhook"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		targetURL: cfg.TargetURL,
		role:      role,
	}
}

// Watch implements Notifier.Watch. Webhooks cannot receive.
func (n *WebhookNotifier) Watch(_ context.Context) (<-chan *Event, error) {
	return nil, cnst.ErrNotReceiver
}

// Notify implements Notifier.Notify
func (n *WebhookNotifier) Notify(ctx context.Context, event *Event) error {
	if !n.CanSend() {
		return cnst.ErrNotSender
	}
	if n.targetURL == "" {
		return fmt.Errorf("target URL is not configured")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.targetURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// CanReceive returns false; webhooks are send-only
func (n *WebhookNotifier) CanReceive() bool {
	return false
}

// CanSend returns true if the notifier can send events
func (n *WebhookNotifier) CanSend() bool {
	return n.role == config.RoleSender || n.role == config.RoleBoth
}
