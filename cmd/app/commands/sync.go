package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	producersUseCase "github.com/allisson/marketsync/internal/producers/usecase"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
	syncUseCase "github.com/allisson/marketsync/internal/sync/usecase"
)

// RunSync executes one sync run of the named type and prints its report.
// A run with failed records still succeeds; the failures are part of the report.
//
// Requirements: Database must be migrated and KMS_KEY_URI must decrypt the account tokens.
func RunSync(
	ctx context.Context,
	useCase syncUseCase.SyncUseCase,
	logger *slog.Logger,
	w io.Writer,
	strategy string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	syncType, err := syncDomain.ParseType(strategy)
	if err != nil {
		return err
	}

	logger.Info("running sync", slog.String("type", string(syncType)))

	report, err := useCase.Run(ctx, syncType)
	if err != nil {
		return fmt.Errorf("sync %s failed: %w", syncType, err)
	}

	if format == "json" {
		return writeJSON(w, report)
	}

	_, _ = fmt.Fprintf(w, "Sync %s finished in %s\n", report.Type, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.MarketplaceToDB != nil && report.DBToMarketplace != nil {
		writeRunText(w, "Marketplace to DB", report.MarketplaceToDB)
		writeRunText(w, "DB to marketplace", report.DBToMarketplace)
	}
	writeRunText(w, "Total", &report.Total)
	for _, recordErr := range report.Total.Errors {
		_, _ = fmt.Fprintf(w, "  %s [%s] %s\n", recordErr.RecordID, recordErr.Kind, recordErr.Message)
	}
	return nil
}

func writeRunText(w io.Writer, label string, result *syncDomain.RunResult) {
	_, _ = fmt.Fprintf(w, "%s: processed %d, successful %d, failed %d\n",
		label, result.Processed, result.Successful, result.Failed)
}

// RunListConflicts prints the newest conflicts waiting for manual review.
func RunListConflicts(
	ctx context.Context,
	useCase syncUseCase.SyncUseCase,
	w io.Writer,
	limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	conflicts, err := useCase.ListConflicts(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	if format == "json" {
		items := make([]map[string]any, 0, len(conflicts))
		for _, c := range conflicts {
			items = append(items, map[string]any{
				"id":                c.ID.String(),
				"entity_type":       c.EntityType,
				"entity_id":         c.EntityID,
				"strategy":          c.Strategy,
				"db_updated_at":     c.DBUpdatedAt,
				"remote_updated_at": c.RemoteUpdatedAt,
				"db_snapshot":       c.DBSnapshot,
				"remote_snapshot":   c.RemoteSnapshot,
				"created_at":        c.CreatedAt,
			})
		}
		return writeJSON(w, items)
	}

	if len(conflicts) == 0 {
		_, _ = fmt.Fprintln(w, "No conflicts waiting for review")
		return nil
	}
	for _, c := range conflicts {
		_, _ = fmt.Fprintf(w, "%s  %s %s (db %s, remote %s)\n",
			c.CreatedAt.Format(time.RFC3339),
			c.EntityType,
			c.EntityID,
			c.DBUpdatedAt.Format(time.RFC3339),
			c.RemoteUpdatedAt.Format(time.RFC3339),
		)
	}
	return nil
}

// RunSyncProducers stores every producer the marketplace lists for an account.
func RunSyncProducers(
	ctx context.Context,
	useCase producersUseCase.ProducerUseCase,
	logger *slog.Logger,
	w io.Writer,
	userID, accountID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	user, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	account, err := uuid.Parse(accountID)
	if err != nil {
		return fmt.Errorf("invalid account id: %w", err)
	}

	logger.Info("syncing producers", slog.String("account_id", account.String()))

	summary, err := useCase.SyncForAccount(ctx, user, account)
	if err != nil {
		return fmt.Errorf("failed to sync producers: %w", err)
	}

	if format == "json" {
		return writeJSON(w, summary)
	}

	_, _ = fmt.Fprintf(w, "Producers: %d total, %d synced, %d errors\n", summary.Total, summary.Synced, summary.Errors)
	return nil
}
