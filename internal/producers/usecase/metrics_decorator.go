package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/metrics"
	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

// producerUseCaseWithMetrics decorates ProducerUseCase with metrics instrumentation.
type producerUseCaseWithMetrics struct {
	next    ProducerUseCase
	metrics metrics.BusinessMetrics
}

// NewProducerUseCaseWithMetrics wraps a ProducerUseCase with metrics recording.
func NewProducerUseCaseWithMetrics(useCase ProducerUseCase, m metrics.BusinessMetrics) ProducerUseCase {
	return &producerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// EnsureExists records metrics for dependency checks.
func (p *producerUseCaseWithMetrics) EnsureExists(
	ctx context.Context,
	userID, accountID uuid.UUID,
	remoteID string,
) (uuid.UUID, error) {
	start := time.Now()
	id, err := p.next.EnsureExists(ctx, userID, accountID, remoteID)
	p.record(ctx, "producer_ensure", start, err)
	return id, err
}

// SyncForAccount records metrics for bulk producer syncs.
func (p *producerUseCaseWithMetrics) SyncForAccount(
	ctx context.Context,
	userID, accountID uuid.UUID,
) (*producersDomain.SyncSummary, error) {
	start := time.Now()
	summary, err := p.next.SyncForAccount(ctx, userID, accountID)
	p.record(ctx, "producer_sync", start, err)
	return summary, err
}

func (p *producerUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordOperation(ctx, "producers", operation, status)
	p.metrics.RecordDuration(ctx, "producers", operation, time.Since(start), status)
}
