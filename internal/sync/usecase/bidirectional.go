package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// Bidirectional pulls with the field policy and then pushes local changes.
type Bidirectional struct {
	pull   *MarketplaceToDB
	push   *DBToMarketplace
	tracer trace.Tracer
}

// Execute runs the pull half before the push half and sums their counts.
// The push half does not run when the pull half fails as a whole.
func (b *Bidirectional) Execute(ctx context.Context) (*syncDomain.BidirectionalResult, error) {
	ctx, span := b.tracer.Start(ctx, "sync.bidirectional")
	defer span.End()

	pull, err := b.pull.ExecuteFieldLevel(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	push, err := b.push.Execute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := syncDomain.NewBidirectionalResult(pull, push)
	span.SetAttributes(
		attribute.Int("sync.processed", result.Total.Processed),
		attribute.Int("sync.failed", result.Total.Failed),
	)
	return result, nil
}

// NewBidirectional combines a pull and a push strategy.
func NewBidirectional(pull *MarketplaceToDB, push *DBToMarketplace) *Bidirectional {
	return &Bidirectional{
		pull:   pull,
		push:   push,
		tracer: otel.Tracer(tracerName),
	}
}
