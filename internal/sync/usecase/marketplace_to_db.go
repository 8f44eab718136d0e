package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	"github.com/allisson/marketsync/internal/conflict"
	"github.com/allisson/marketsync/internal/keylock"
	"github.com/allisson/marketsync/internal/marketplace"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// Field names of the conflict field policy.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldStock       = "stockQuantity"
	fieldStatus      = "status"
)

// MarketplaceToDB pulls the marketplace state of linked offers into the local catalog.
type MarketplaceToDB struct {
	config Config
	deps   Dependencies
	tracer trace.Tracer
	now    func() time.Time
}

// Execute resolves every offer of the batch with the given record-level strategy.
func (m *MarketplaceToDB) Execute(ctx context.Context, strategy conflict.Strategy) (*syncDomain.RunResult, error) {
	strategy, err := conflict.ParseStrategy(string(strategy))
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, strategy, false)
}

// ExecuteFieldLevel merges every offer of the batch field by field using the
// resolver's field policy.
func (m *MarketplaceToDB) ExecuteFieldLevel(ctx context.Context) (*syncDomain.RunResult, error) {
	return m.execute(ctx, "", true)
}

func (m *MarketplaceToDB) execute(
	ctx context.Context,
	strategy conflict.Strategy,
	fieldLevel bool,
) (*syncDomain.RunResult, error) {
	ctx, span := m.tracer.Start(ctx, "sync.marketplace_to_db", trace.WithAttributes(
		attribute.String("sync.strategy", string(strategy)),
		attribute.Bool("sync.field_level", fieldLevel),
	))
	defer span.End()

	offers, err := m.deps.Offers.ListForSync(ctx, m.config.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &syncDomain.RunResult{Errors: []syncDomain.RecordError{}}
	tokens := newTokenCache(m.deps.Tokens)
	for _, offer := range offers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := m.syncOffer(ctx, tokens, offer, strategy, fieldLevel)
		if err == nil {
			result.Succeed()
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		m.deps.Logger.Warn("failed to pull offer",
			slog.String("offer_id", offer.RemoteOfferID),
			slog.Any("error", err),
		)
		result.Fail(offer.RemoteOfferID, err)
	}

	span.SetAttributes(
		attribute.Int("sync.processed", result.Processed),
		attribute.Int("sync.failed", result.Failed),
	)
	m.deps.Logger.Info("marketplace to db sync finished",
		slog.Int("processed", result.Processed),
		slog.Int("successful", result.Successful),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (m *MarketplaceToDB) syncOffer(
	ctx context.Context,
	tokens *tokenCache,
	offer *catalogDomain.Offer,
	strategy conflict.Strategy,
	fieldLevel bool,
) error {
	token, err := tokens.get(ctx, offer.AccountID)
	if err != nil {
		return m.markError(ctx, offer, err)
	}

	remote, err := m.deps.Remote.GetOffer(ctx, token, offer.RemoteOfferID)
	if err != nil {
		return m.markError(ctx, offer, err)
	}

	now := m.now()
	if fieldLevel {
		return m.markError(ctx, offer, m.apply(ctx, offer, remote, true, now))
	}

	remoteUpdatedAt := now
	if remote.UpdatedAt != nil {
		remoteUpdatedAt = *remote.UpdatedAt
	}

	resolution, err := m.deps.Resolver.Resolve(offer, remote, offer.UpdatedAt, remoteUpdatedAt, strategy)
	if err != nil {
		return err
	}

	switch resolution {
	case conflict.UseDB:
		return m.deps.Offers.MarkChecked(ctx, offer.ID, now)
	case conflict.UseRemote:
		return m.markError(ctx, offer, m.apply(ctx, offer, remote, false, now))
	default:
		return m.queueConflict(ctx, offer, remote, strategy, remoteUpdatedAt, now)
	}
}

// apply writes the remote values to the offer and its linked product under
// the offer and product keys.
func (m *MarketplaceToDB) apply(
	ctx context.Context,
	offer *catalogDomain.Offer,
	remote *marketplace.Offer,
	fieldLevel bool,
	now time.Time,
) error {
	keys := []string{keylock.OfferKey(offer.RemoteOfferID)}
	if offer.ProductID.Valid {
		keys = append(keys, keylock.ProductKey(offer.ProductID.UUID.String()))
	}
	unlock, err := m.deps.Locker.LockAll(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	return m.deps.TxManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := m.deps.Offers.GetByRemoteID(ctx, offer.RemoteOfferID)
		if err != nil {
			return err
		}

		values := remoteValues(remote, current)
		if fieldLevel {
			values = m.mergeOffer(current, values)
		}
		values.applyTo(current)
		current.MarkSynced(now)
		if err := m.deps.Offers.Update(ctx, current); err != nil {
			return err
		}

		if !current.ProductID.Valid {
			return nil
		}
		product, err := m.deps.Products.Get(ctx, current.ProductID.UUID)
		if err != nil {
			return err
		}

		price, stock, description := remote.PriceAmount(), remote.Available(), remote.Description
		if description == "" {
			description = product.Description
		}
		if fieldLevel {
			merged := m.deps.Resolver.MergeFields(map[string]conflict.FieldValues{
				fieldPrice:       {DB: product.SellingPrice, Remote: price},
				fieldStock:       {DB: product.StockQuantity, Remote: stock},
				fieldDescription: {DB: product.Description, Remote: description},
			})
			price = merged[fieldPrice].(string)
			stock = merged[fieldStock].(int)
			description = merged[fieldDescription].(string)
		}
		return m.deps.Products.ApplyMarketplaceValues(ctx, product.ID, price, stock, description)
	})
}

func (m *MarketplaceToDB) mergeOffer(current *catalogDomain.Offer, remote offerValues) offerValues {
	local := valuesOf(current)
	merged := m.deps.Resolver.MergeFields(map[string]conflict.FieldValues{
		fieldTitle:       {DB: local.Title, Remote: remote.Title},
		fieldDescription: {DB: local.Description, Remote: remote.Description},
		fieldPrice:       {DB: local.Price, Remote: remote.Price},
		fieldStock:       {DB: local.Stock, Remote: remote.Stock},
		fieldStatus:      {DB: local.Status, Remote: remote.Status},
	})

	values := offerValues{
		Title:       merged[fieldTitle].(string),
		Description: merged[fieldDescription].(string),
		Price:       merged[fieldPrice].(string),
		Currency:    local.Currency,
		Stock:       merged[fieldStock].(int),
		Status:      merged[fieldStatus].(string),
	}
	if values.Price == remote.Price {
		values.Currency = remote.Currency
	}
	return values
}

// queueConflict stores both versions for review and flags the offer.
func (m *MarketplaceToDB) queueConflict(
	ctx context.Context,
	offer *catalogDomain.Offer,
	remote *marketplace.Offer,
	strategy conflict.Strategy,
	remoteUpdatedAt, now time.Time,
) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	dbSnapshot, err := json.Marshal(valuesOf(offer))
	if err != nil {
		return err
	}
	remoteSnapshot, err := json.Marshal(remote)
	if err != nil {
		return err
	}

	err = m.deps.TxManager.WithTx(ctx, func(ctx context.Context) error {
		err := m.deps.Conflicts.Create(ctx, &syncDomain.Conflict{
			ID:              id,
			EntityType:      syncDomain.EntityTypeOffer,
			EntityID:        offer.RemoteOfferID,
			Strategy:        strategy,
			DBUpdatedAt:     offer.UpdatedAt,
			RemoteUpdatedAt: remoteUpdatedAt,
			DBSnapshot:      dbSnapshot,
			RemoteSnapshot:  remoteSnapshot,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		return m.deps.Offers.MarkError(ctx, offer.ID, conflict.ErrManualReviewRequired.Error())
	})
	if err != nil {
		return err
	}
	return conflict.ErrManualReviewRequired
}

// markError flags the offer when err is a record failure. The original error
// is returned either way.
func (m *MarketplaceToDB) markError(ctx context.Context, offer *catalogDomain.Offer, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	if markErr := m.deps.Offers.MarkError(ctx, offer.ID, err.Error()); markErr != nil {
		m.deps.Logger.Error("failed to flag offer",
			slog.String("offer_id", offer.RemoteOfferID),
			slog.Any("error", markErr),
		)
	}
	return err
}

// offerValues are the offer fields owned by either side of a sync.
type offerValues struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Stock       int    `json:"stockQuantity"`
	Status      string `json:"status"`
}

func valuesOf(offer *catalogDomain.Offer) offerValues {
	return offerValues{
		Title:       offer.Title,
		Description: offer.Description,
		Price:       offer.Price,
		Currency:    offer.Currency,
		Stock:       offer.StockQuantity,
		Status:      offer.Status,
	}
}

// remoteValues reads the marketplace offer, keeping local values the
// marketplace did not send.
func remoteValues(remote *marketplace.Offer, current *catalogDomain.Offer) offerValues {
	values := valuesOf(current)
	if remote.Name != "" {
		values.Title = remote.Name
	}
	if remote.Description != "" {
		values.Description = remote.Description
	}
	values.Price = remote.PriceAmount()
	if remote.SellingMode != nil && remote.SellingMode.Price.Currency != "" {
		values.Currency = remote.SellingMode.Price.Currency
	}
	values.Stock = remote.Available()
	values.Status = remote.Status()
	return values
}

func (v offerValues) applyTo(offer *catalogDomain.Offer) {
	offer.Title = v.Title
	offer.Description = v.Description
	offer.Price = v.Price
	offer.Currency = v.Currency
	offer.Quantity = v.Stock
	offer.StockQuantity = v.Stock
	offer.Status = v.Status
}

// NewMarketplaceToDB creates the pull strategy.
func NewMarketplaceToDB(config Config, deps Dependencies) *MarketplaceToDB {
	return &MarketplaceToDB{
		config: config.withDefaults(),
		deps:   deps.withDefaults(),
		tracer: otel.Tracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
	}
}
