package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
)

// HandleInventoryUpdated sets the absolute stock of the offer and of its linked
// product. A product that reaches its minimum stock triggers a stock_low
// notification after the transaction commits.
func (h *Handlers) HandleInventoryUpdated(ctx context.Context, event *eventsDomain.SyncEvent) error {
	remote, err := decodeOffer(event)
	if err != nil {
		return err
	}
	stock := remote.Available()

	unlockOffer, err := h.deps.Locker.Lock(ctx, offerKey(remote.ID))
	if err != nil {
		return err
	}
	defer unlockOffer()

	offer, err := h.deps.Offers.GetByRemoteID(ctx, remote.ID)
	if errors.Is(err, catalogDomain.ErrOfferNotFound) {
		h.deps.Logger.Warn("ignoring inventory event for unknown offer",
			slog.String("event_id", event.EventID),
			slog.String("offer_id", remote.ID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if offer.ProductID.Valid {
		unlockProduct, err := h.deps.Locker.Lock(ctx, productKey(offer.ProductID.UUID))
		if err != nil {
			return err
		}
		defer unlockProduct()
	}

	var lowStock *catalogDomain.Product
	err = h.deps.TxManager.WithTx(ctx, func(ctx context.Context) error {
		offer, err := h.deps.Offers.GetByRemoteID(ctx, remote.ID)
		if err != nil {
			return err
		}

		offer.Quantity = stock
		offer.StockQuantity = stock
		offer.MarkSynced(h.now().UTC())
		if err := h.deps.Offers.Update(ctx, offer); err != nil {
			return err
		}

		if !offer.ProductID.Valid {
			return nil
		}

		if err := h.deps.Products.SetStock(ctx, offer.ProductID.UUID, stock); err != nil {
			return err
		}
		product, err := h.deps.Products.Get(ctx, offer.ProductID.UUID)
		if err != nil {
			return err
		}
		if product.IsLowStock() {
			lowStock = product
		}
		return nil
	})
	if err != nil {
		return err
	}

	if lowStock != nil && h.config.StockLowEnabled {
		channel, recipient := h.opsChannel()
		h.notify(ctx, notificationDomain.Notification{
			Channel:   channel,
			Type:      notificationDomain.TypeStockLow,
			Recipient: recipient,
			Subject:   fmt.Sprintf("Low stock: %s", lowStock.Code),
			Message: fmt.Sprintf("Product %s has %d units left (minimum %d).",
				lowStock.Code, lowStock.StockQuantity, lowStock.MinimumStockQuantity),
			TemplateData: map[string]any{
				"productCode":  lowStock.Code,
				"currentStock": lowStock.StockQuantity,
				"minimumStock": lowStock.MinimumStockQuantity,
			},
		})
	}
	return nil
}
