package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	eventsUseCase "github.com/allisson/marketsync/internal/events/usecase"
)

// RunPollEvents fetches and handles one page of every marketplace event stream.
//
// Requirements: Database must be migrated and EVENTS_ACCOUNT_ID must name an active account.
func RunPollEvents(
	ctx context.Context,
	eventUseCase eventsUseCase.EventUseCase,
	logger *slog.Logger,
	w io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("polling marketplace events")

	result, err := eventUseCase.PollEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to poll events: %w", err)
	}

	if format == "json" {
		return writeJSON(w, result)
	}

	_, _ = fmt.Fprintf(w, "Ingested: %d\n", result.Ingested)
	_, _ = fmt.Fprintf(w, "Processed: %d\n", result.Processed)
	_, _ = fmt.Fprintf(w, "Failed: %d\n", result.Failed)
	_, _ = fmt.Fprintf(w, "Duplicates: %d\n", result.Duplicates)
	_, _ = fmt.Fprintf(w, "Dropped: %d\n", result.Dropped)

	streams := make([]string, 0, len(result.StreamErrors))
	for stream := range result.StreamErrors {
		streams = append(streams, stream)
	}
	sort.Strings(streams)
	for _, stream := range streams {
		_, _ = fmt.Fprintf(w, "Stream %s failed: %s\n", stream, result.StreamErrors[stream])
	}
	return nil
}

// RunRetryEvent re-runs the handler of a stored, unprocessed event.
func RunRetryEvent(
	ctx context.Context,
	eventUseCase eventsUseCase.EventUseCase,
	logger *slog.Logger,
	w io.Writer,
	eventID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}

	logger.Info("retrying event", slog.String("event_id", eventID))

	event, err := eventUseCase.RetryEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to retry event %s: %w", eventID, err)
	}

	if format == "json" {
		return writeJSON(w, eventView(event))
	}

	_, _ = fmt.Fprintf(w, "Event %s processed (type: %s, retries: %d)\n", event.EventID, event.EventType, event.RetryCount)
	return nil
}

// RunListEvents prints one page of stored events, newest first.
func RunListEvents(
	ctx context.Context,
	eventUseCase eventsUseCase.EventUseCase,
	logger *slog.Logger,
	w io.Writer,
	filter eventsDomain.ListFilter,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	page, err := eventUseCase.ListEvents(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	logger.Debug("events listed", slog.Int("count", len(page.Items)), slog.Int("total", page.Total))

	if format == "json" {
		items := make([]eventJSON, 0, len(page.Items))
		for _, event := range page.Items {
			items = append(items, eventView(event))
		}
		return writeJSON(w, map[string]any{
			"items":       items,
			"page":        page.Page,
			"limit":       page.Limit,
			"total":       page.Total,
			"total_pages": page.TotalPages,
		})
	}

	if len(page.Items) == 0 {
		_, _ = fmt.Fprintln(w, "No events found")
		return nil
	}
	for _, event := range page.Items {
		status := "pending"
		if event.Processed {
			status = "processed"
		} else if event.ProcessingError != nil {
			status = "failed: " + *event.ProcessingError
		}
		_, _ = fmt.Fprintf(w, "%s  %-22s %-8s %s\n",
			event.CreatedAt.Format(time.RFC3339), event.EventType, event.EventID, status)
	}
	_, _ = fmt.Fprintf(w, "Page %d of %d (%d events)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

// RunCleanEvents deletes processed events older than the specified number of days.
// Supports dry-run mode to preview the deletion count.
func RunCleanEvents(
	ctx context.Context,
	eventUseCase eventsUseCase.EventUseCase,
	logger *slog.Logger,
	w io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 1 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("cleaning processed events", slog.Int("days", days), slog.Bool("dry_run", dryRun))

	count, err := eventUseCase.CleanupProcessed(ctx, time.Duration(days)*24*time.Hour, dryRun)
	if err != nil {
		return fmt.Errorf("failed to clean events: %w", err)
	}

	if format == "json" {
		return writeJSON(w, map[string]any{
			"count":   count,
			"days":    days,
			"dry_run": dryRun,
		})
	}

	if dryRun {
		_, _ = fmt.Fprintf(w, "Dry-run mode: Would delete %d processed event(s) older than %d day(s)\n", count, days)
	} else {
		_, _ = fmt.Fprintf(w, "Successfully deleted %d processed event(s) older than %d day(s)\n", count, days)
	}
	return nil
}

type eventJSON struct {
	ID              string     `json:"id"`
	EventID         string     `json:"event_id"`
	EventType       string     `json:"event_type"`
	Stream          string     `json:"stream"`
	Processed       bool       `json:"processed"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError *string    `json:"processing_error,omitempty"`
	RetryCount      int        `json:"retry_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

func eventView(event *eventsDomain.SyncEvent) eventJSON {
	return eventJSON{
		ID:              event.ID.String(),
		EventID:         event.EventID,
		EventType:       event.EventType,
		Stream:          event.Stream,
		Processed:       event.Processed,
		ProcessedAt:     event.ProcessedAt,
		ProcessingError: event.ProcessingError,
		RetryCount:      event.RetryCount,
		CreatedAt:       event.CreatedAt,
	}
}
