package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	eventsMocks "github.com/allisson/marketsync/internal/events/usecase/mocks"
)

func TestRunPollEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("PollEvents", ctx).Return(&eventsDomain.PollResult{
			Ingested:     3,
			Processed:    2,
			Failed:       1,
			Duplicates:   4,
			StreamErrors: map[string]string{"sale/offer-events": "timeout", "order/events": "boom"},
		}, nil)

		var out bytes.Buffer
		err := RunPollEvents(ctx, mockUseCase, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Ingested: 3")
		require.Contains(t, out.String(), "Failed: 1")
		require.Contains(t, out.String(), "Duplicates: 4")
		require.Less(t,
			bytes.Index(out.Bytes(), []byte("Stream order/events failed: boom")),
			bytes.Index(out.Bytes(), []byte("Stream sale/offer-events failed: timeout")),
		)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("PollEvents", ctx).Return(&eventsDomain.PollResult{Ingested: 1, Processed: 1}, nil)

		var out bytes.Buffer
		err := RunPollEvents(ctx, mockUseCase, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"ingested": 1`)
		require.NotContains(t, out.String(), "stream_errors")
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("PollEvents", ctx).Return(nil, errors.New("db down"))

		err := RunPollEvents(ctx, mockUseCase, logger, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to poll events")
	})

	t.Run("invalid-format", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)

		err := RunPollEvents(ctx, mockUseCase, logger, &bytes.Buffer{}, "yaml")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid format")
	})
}

func TestRunRetryEvent(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("success", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("RetryEvent", ctx, "evt-1").Return(&eventsDomain.SyncEvent{
			ID:         uuid.Must(uuid.NewV7()),
			EventID:    "evt-1",
			EventType:  "ORDER_STATUS_CHANGED",
			Processed:  true,
			RetryCount: 2,
		}, nil)

		var out bytes.Buffer
		err := RunRetryEvent(ctx, mockUseCase, logger, &out, "evt-1", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Event evt-1 processed (type: ORDER_STATUS_CHANGED, retries: 2)")
	})

	t.Run("missing-id", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)

		err := RunRetryEvent(ctx, mockUseCase, logger, &bytes.Buffer{}, "", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "event id is required")
	})

	t.Run("not-found", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("RetryEvent", ctx, "evt-9").Return(nil, eventsDomain.ErrEventNotFound)

		err := RunRetryEvent(ctx, mockUseCase, logger, &bytes.Buffer{}, "evt-9", "text")

		require.ErrorIs(t, err, eventsDomain.ErrEventNotFound)
	})
}

func TestRunListEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	failure := "offer missing"
	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("text-output", func(t *testing.T) {
		filter := eventsDomain.ListFilter{EventType: "OFFER_STOCK_CHANGED", Page: 1, Limit: 20}
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("ListEvents", ctx, filter).Return(&eventsDomain.Page{
			Items: []*eventsDomain.SyncEvent{
				{EventID: "1", EventType: "OFFER_STOCK_CHANGED", Processed: true, CreatedAt: createdAt},
				{EventID: "2", EventType: "OFFER_STOCK_CHANGED", ProcessingError: &failure, CreatedAt: createdAt},
			},
			Page:       1,
			Limit:      20,
			Total:      2,
			TotalPages: 1,
		}, nil)

		var out bytes.Buffer
		err := RunListEvents(ctx, mockUseCase, logger, &out, filter, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "processed")
		require.Contains(t, out.String(), "failed: offer missing")
		require.Contains(t, out.String(), "Page 1 of 1 (2 events)")
	})

	t.Run("empty", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("ListEvents", ctx, eventsDomain.ListFilter{}).Return(&eventsDomain.Page{Page: 1, Limit: 20}, nil)

		var out bytes.Buffer
		err := RunListEvents(ctx, mockUseCase, logger, &out, eventsDomain.ListFilter{}, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "No events found")
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("ListEvents", ctx, eventsDomain.ListFilter{}).Return(&eventsDomain.Page{
			Items:      []*eventsDomain.SyncEvent{{EventID: "1", EventType: "OFFER_PRICE_CHANGED", CreatedAt: createdAt}},
			Page:       1,
			Limit:      20,
			Total:      1,
			TotalPages: 1,
		}, nil)

		var out bytes.Buffer
		err := RunListEvents(ctx, mockUseCase, logger, &out, eventsDomain.ListFilter{}, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"event_type": "OFFER_PRICE_CHANGED"`)
		require.Contains(t, out.String(), `"total_pages": 1`)
	})
}

func TestRunCleanEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	days := 30
	olderThan := 30 * 24 * time.Hour

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("CleanupProcessed", ctx, olderThan, false).Return(int64(100), nil)

		var out bytes.Buffer
		err := RunCleanEvents(ctx, mockUseCase, logger, &out, days, false, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Successfully deleted 100 processed event(s)")
	})

	t.Run("dry-run-json", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		mockUseCase.On("CleanupProcessed", ctx, olderThan, true).Return(int64(50), nil)

		var out bytes.Buffer
		err := RunCleanEvents(ctx, mockUseCase, logger, &out, days, true, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"count": 50`)
		require.Contains(t, out.String(), `"dry_run": true`)
	})

	t.Run("invalid-days", func(t *testing.T) {
		mockUseCase := eventsMocks.NewMockEventUseCase(t)
		err := RunCleanEvents(ctx, mockUseCase, logger, &bytes.Buffer{}, 0, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
	})
}
