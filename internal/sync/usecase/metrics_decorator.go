package usecase

import (
	"context"
	"time"

	"github.com/allisson/marketsync/internal/metrics"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// syncUseCaseWithMetrics decorates SyncUseCase with metrics instrumentation.
type syncUseCaseWithMetrics struct {
	next    SyncUseCase
	metrics metrics.BusinessMetrics
}

// NewSyncUseCaseWithMetrics wraps a SyncUseCase with metrics recording.
func NewSyncUseCaseWithMetrics(useCase SyncUseCase, m metrics.BusinessMetrics) SyncUseCase {
	return &syncUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Run records one operation per run type. Runs that complete with failed
// records are reported with the "partial" status.
func (s *syncUseCaseWithMetrics) Run(ctx context.Context, syncType syncDomain.Type) (*syncDomain.Report, error) {
	start := time.Now()
	report, err := s.next.Run(ctx, syncType)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case report.Total.Failed > 0:
		status = "partial"
	}
	operation := "sync_" + string(syncType)
	s.metrics.RecordOperation(ctx, "sync", operation, status)
	s.metrics.RecordDuration(ctx, "sync", operation, time.Since(start), status)
	return report, err
}

// ListConflicts records metrics for conflict listing.
func (s *syncUseCaseWithMetrics) ListConflicts(ctx context.Context, limit int) ([]*syncDomain.Conflict, error) {
	start := time.Now()
	conflicts, err := s.next.ListConflicts(ctx, limit)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "sync", "sync_list_conflicts", status)
	s.metrics.RecordDuration(ctx, "sync", "sync_list_conflicts", time.Since(start), status)
	return conflicts, err
}
