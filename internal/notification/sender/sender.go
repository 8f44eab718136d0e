// Package sender implements notification transports.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/allisson/marketsync/internal/errors"
	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
	"github.com/allisson/marketsync/internal/retry"
)

// WebhookSender POSTs notifications as JSON to a fixed URL.
type WebhookSender struct {
	url     string
	client  *http.Client
	retrier *retry.Executor
}

// NewWebhookSender creates a WebhookSender. A nil client uses http.DefaultClient.
func NewWebhookSender(url string, client *http.Client, retrier *retry.Executor) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{url: url, client: client, retrier: retrier}
}

// Send delivers n. Non-2xx responses below 500 are not retried.
func (s *WebhookSender) Send(ctx context.Context, n notificationDomain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode notification")
	}

	return s.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(apperrors.Wrap(err, "failed to build webhook request"))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", notificationDomain.ErrDeliveryFailed, err)
		}
		defer resp.Body.Close() //nolint:errcheck
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: webhook returned %d", notificationDomain.ErrDeliveryFailed, resp.StatusCode)
		default:
			return retry.Permanent(
				fmt.Errorf("%w: webhook returned %d", notificationDomain.ErrDeliveryFailed, resp.StatusCode),
			)
		}
	})
}

// LogSender writes notifications to the log. Used when no webhook is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements usecase.Sender.
func (s *LogSender) Send(_ context.Context, n notificationDomain.Notification) error {
	s.logger.Info("notification",
		slog.String("channel", string(n.Channel)),
		slog.String("type", string(n.Type)),
		slog.String("recipient", n.Recipient),
		slog.String("subject", n.Subject),
		slog.String("message", n.Message),
	)
	return nil
}
