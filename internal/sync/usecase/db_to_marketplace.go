package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	"github.com/allisson/marketsync/internal/keylock"
	"github.com/allisson/marketsync/internal/marketplace"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// DBToMarketplace pushes recently changed products to the marketplace.
type DBToMarketplace struct {
	config Config
	deps   Dependencies
	tracer trace.Tracer
	now    func() time.Time
}

// Execute pushes up to BatchSize active products changed within ChangeWindow.
// Each product is isolated: its failure is recorded and the batch continues.
func (d *DBToMarketplace) Execute(ctx context.Context) (*syncDomain.RunResult, error) {
	ctx, span := d.tracer.Start(ctx, "sync.db_to_marketplace")
	defer span.End()

	since := d.now().Add(-d.config.ChangeWindow)
	products, err := d.deps.Products.ListChangedSince(ctx, since, d.config.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &syncDomain.RunResult{Errors: []syncDomain.RecordError{}}
	tokens := newTokenCache(d.deps.Tokens)
	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := d.pushProduct(ctx, tokens, product)
		if err == nil {
			result.Succeed()
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		d.deps.Logger.Warn("failed to push product",
			slog.String("product_id", product.ID.String()),
			slog.String("code", product.Code),
			slog.Any("error", err),
		)
		if markErr := d.deps.Products.MarkError(ctx, product.ID, err.Error()); markErr != nil {
			d.deps.Logger.Error("failed to flag product",
				slog.String("product_id", product.ID.String()),
				slog.Any("error", markErr),
			)
		}
		result.Fail(product.ID.String(), err)
	}

	span.SetAttributes(
		attribute.Int("sync.processed", result.Processed),
		attribute.Int("sync.failed", result.Failed),
	)
	d.deps.Logger.Info("db to marketplace sync finished",
		slog.Int("processed", result.Processed),
		slog.Int("successful", result.Successful),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (d *DBToMarketplace) pushProduct(
	ctx context.Context,
	tokens *tokenCache,
	product *catalogDomain.Product,
) error {
	linked, err := d.deps.Offers.GetByProductID(ctx, product.ID)
	if err != nil && !errors.Is(err, catalogDomain.ErrOfferNotFound) {
		return err
	}

	// Offer events write the linked offer under its own key, so both keys are
	// held from the read until the local write.
	keys := []string{keylock.ProductKey(product.ID.String())}
	if linked != nil {
		keys = append(keys, keylock.OfferKey(linked.RemoteOfferID))
	}
	unlock, err := d.deps.Locker.LockAll(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	if linked != nil {
		linked, err = d.deps.Offers.GetByRemoteID(ctx, linked.RemoteOfferID)
		if err != nil {
			return err
		}
		if !linked.ProductID.Valid || linked.ProductID.UUID != product.ID {
			return fmt.Errorf("offer %s was relinked during the push", linked.RemoteOfferID)
		}
	}

	token, err := tokens.get(ctx, product.AccountID)
	if err != nil {
		return err
	}

	payload := offerPayload(product)
	if product.ProducerRemoteID != "" {
		if err := d.ensureProducer(ctx, product); err != nil {
			return err
		}
		payload.ResponsibleProducer = &marketplace.Reference{ID: product.ProducerRemoteID}
	}

	if linked != nil {
		if linked.Currency != "" {
			payload.SellingMode.Price.Currency = linked.Currency
		}
		remote, err := d.deps.Remote.UpdateOffer(ctx, token, linked.RemoteOfferID, payload)
		if err != nil {
			return err
		}
		return d.recordPush(ctx, product, linked.RemoteOfferID, remote, payload)
	}

	remote, err := d.deps.Remote.CreateOffer(ctx, token, payload)
	if err != nil {
		return err
	}
	if remote == nil || remote.ID == "" {
		return fmt.Errorf("%w: created offer has no id", marketplace.ErrRemoteRejected)
	}
	return d.recordPush(ctx, product, remote.ID, remote, payload)
}

// ensureProducer resolves the product's producer and links it locally.
func (d *DBToMarketplace) ensureProducer(ctx context.Context, product *catalogDomain.Product) error {
	producerID, err := d.deps.Producers.EnsureExists(
		ctx,
		product.UserID,
		product.AccountID,
		product.ProducerRemoteID,
	)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: producer %s: %w", syncDomain.ErrDependencyUnresolved, product.ProducerRemoteID, err)
	}
	if product.ProducerID.Valid && product.ProducerID.UUID == producerID {
		return nil
	}
	if err := d.deps.Products.SetProducer(ctx, product.ID, producerID); err != nil {
		return err
	}
	product.ProducerID = uuid.NullUUID{UUID: producerID, Valid: true}
	return nil
}

// recordPush links or refreshes the local offer and marks the product synced.
// The offer is re-read inside the transaction; when the marketplace offer was
// just created and no local row exists yet, one is inserted.
func (d *DBToMarketplace) recordPush(
	ctx context.Context,
	product *catalogDomain.Product,
	remoteOfferID string,
	remote *marketplace.Offer,
	payload *marketplace.Offer,
) error {
	now := d.now()
	return d.deps.TxManager.WithTx(ctx, func(ctx context.Context) error {
		offer, err := d.deps.Offers.GetByRemoteID(ctx, remoteOfferID)
		created := errors.Is(err, catalogDomain.ErrOfferNotFound)
		if err != nil && !created {
			return err
		}
		if created {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			offer = &catalogDomain.Offer{
				ID:            id,
				AccountID:     product.AccountID,
				RemoteOfferID: remoteOfferID,
				CreatedAt:     now,
			}
		}

		offer.ProductID = uuid.NullUUID{UUID: product.ID, Valid: true}
		offer.Title = payload.Name
		offer.Description = payload.Description
		offer.Price = payload.PriceAmount()
		offer.Currency = payload.SellingMode.Price.Currency
		offer.Quantity = payload.Available()
		offer.StockQuantity = payload.Available()
		if remote != nil && remote.Publication != nil {
			offer.Status = remote.Status()
		} else if offer.Status == "" {
			offer.Status = catalogDomain.OfferStatusInactive
		}
		offer.SyncStatus = catalogDomain.SyncStatusSynced
		offer.SyncSource = catalogDomain.SyncSourceLocal
		offer.SyncError = nil
		offer.LastSyncedAt = &now
		offer.UpdatedAt = now

		if created {
			err = d.deps.Offers.Create(ctx, offer)
		} else {
			err = d.deps.Offers.Update(ctx, offer)
		}
		if err != nil {
			return err
		}
		return d.deps.Products.MarkSynced(ctx, product.ID, product.UpdatedAt)
	})
}

// offerPayload builds the marketplace offer for a product. The selling price
// falls back to the purchase price.
func offerPayload(product *catalogDomain.Product) *marketplace.Offer {
	price := product.SellingPrice
	if price == "" {
		price = product.PurchasePrice
	}
	return &marketplace.Offer{
		Name:        product.Title,
		Description: product.Description,
		SellingMode: &marketplace.SellingMode{
			Price: marketplace.Price{Amount: price, Currency: defaultCurrency},
		},
		Stock:    &marketplace.Stock{Available: product.StockQuantity},
		External: &marketplace.Reference{ID: product.Code},
	}
}

// NewDBToMarketplace creates the push strategy.
func NewDBToMarketplace(config Config, deps Dependencies) *DBToMarketplace {
	return &DBToMarketplace{
		config: config.withDefaults(),
		deps:   deps.withDefaults(),
		tracer: otel.Tracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
	}
}
