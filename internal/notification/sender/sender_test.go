package sender

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
	"github.com/allisson/marketsync/internal/retry"
)

func syncError() notificationDomain.Notification {
	return notificationDomain.Notification{
		Channel:      notificationDomain.ChannelWebhook,
		Type:         notificationDomain.TypeSyncError,
		Subject:      "Sync run failed",
		Message:      "2 records failed",
		TemplateData: map[string]any{"failed": float64(2)},
	}
}

func TestWebhookSender_Send(t *testing.T) {
	retrier := retry.New(3, time.Millisecond, 2*time.Millisecond, false)

	t.Run("Success", func(t *testing.T) {
		var received notificationDomain.Notification
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		err := NewWebhookSender(server.URL, server.Client(), retrier).Send(context.Background(), syncError())
		require.NoError(t, err)
		assert.Equal(t, syncError(), received)
	})

	t.Run("RetriesServerErrors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		err := NewWebhookSender(server.URL, server.Client(), retrier).Send(context.Background(), syncError())
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("ClientErrorIsPermanent", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		err := NewWebhookSender(server.URL, server.Client(), retrier).Send(context.Background(), syncError())
		require.Error(t, err)
		assert.ErrorIs(t, err, notificationDomain.ErrDeliveryFailed)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestLogSender_Send(t *testing.T) {
	sender := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, sender.Send(context.Background(), syncError()))
}
