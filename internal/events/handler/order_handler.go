package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
	ordersDomain "github.com/allisson/marketsync/internal/orders/domain"
)

// HandleOrderCreated stores the order. Re-delivery overwrites it with the same values.
func (h *Handlers) HandleOrderCreated(ctx context.Context, event *eventsDomain.SyncEvent) error {
	return h.handleOrder(ctx, event, false)
}

// HandleOrderUpdated overwrites the order state. A cancelled order gives its
// line item quantities back to the offers and linked products exactly once, and
// an order that becomes paid triggers an order_status_update notification.
func (h *Handlers) HandleOrderUpdated(ctx context.Context, event *eventsDomain.SyncEvent) error {
	return h.handleOrder(ctx, event, true)
}

func (h *Handlers) handleOrder(ctx context.Context, event *eventsDomain.SyncEvent, updated bool) error {
	body, err := decodeOrder(event)
	if err != nil {
		return err
	}
	if !body.hasDetails() {
		body = h.fetchOrder(ctx, body)
	}
	order := body.toOrder(h.now().UTC())

	unlockOrder, err := h.deps.Locker.Lock(ctx, orderKey(order.RemoteOrderID))
	if err != nil {
		return err
	}
	defer unlockOrder()

	previous, err := h.deps.Orders.GetByRemoteID(ctx, order.RemoteOrderID)
	if err != nil && !errors.Is(err, ordersDomain.ErrOrderNotFound) {
		return err
	}
	wasPaid := previous != nil && previous.IsPaid()

	restore := updated && order.IsCancelled()
	if restore {
		unlock, err := h.lockLineItems(ctx, order.LineItems)
		if err != nil {
			return err
		}
		defer unlock()
	}

	err = h.deps.TxManager.WithTx(ctx, func(ctx context.Context) error {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		order.ID = id
		order.SyncStatus = catalogDomain.SyncStatusSynced
		if err := h.deps.Orders.Upsert(ctx, order); err != nil {
			return err
		}

		if restore {
			return h.restoreStock(ctx, order)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if updated && order.IsPaid() && !wasPaid && h.config.OrderPaidEnabled {
		h.notifyPaid(ctx, order)
	}
	return nil
}

// fetchOrder loads the full order when the event only names it. Failures keep
// the bare payload so the order is still recorded.
func (h *Handlers) fetchOrder(ctx context.Context, body *orderBody) *orderBody {
	if h.deps.OrderSource == nil || h.deps.Tokens == nil || h.config.AccountID == uuid.Nil {
		return body
	}

	token, err := h.deps.Tokens.AccessToken(ctx, h.config.AccountID)
	if err == nil {
		remote, getErr := h.deps.OrderSource.GetOrder(ctx, token, body.remoteID())
		if getErr == nil {
			return orderFromRemote(remote)
		}
		err = getErr
	}

	h.deps.Logger.Warn("failed to fetch order details",
		slog.String("order_id", body.remoteID()),
		slog.Any("error", err),
	)
	return body
}

// lockLineItems locks every offer of the order and then the products linked to
// them.
func (h *Handlers) lockLineItems(ctx context.Context, items []ordersDomain.LineItem) (func(), error) {
	offerKeys := make([]string, 0, len(items))
	for _, item := range items {
		offerKeys = append(offerKeys, offerKey(item.OfferID))
	}
	unlockOffers, err := h.deps.Locker.LockAll(ctx, offerKeys...)
	if err != nil {
		return nil, err
	}

	var productKeys []string
	for _, item := range items {
		offer, err := h.deps.Offers.GetByRemoteID(ctx, item.OfferID)
		if errors.Is(err, catalogDomain.ErrOfferNotFound) {
			continue
		}
		if err != nil {
			unlockOffers()
			return nil, err
		}
		if offer.ProductID.Valid {
			productKeys = append(productKeys, productKey(offer.ProductID.UUID))
		}
	}

	unlockProducts, err := h.deps.Locker.LockAll(ctx, productKeys...)
	if err != nil {
		unlockOffers()
		return nil, err
	}

	return func() {
		unlockProducts()
		unlockOffers()
	}, nil
}

// restoreStock increments offer and product stock for every line item. The
// guard row is written first in the same transaction, so a second cancellation
// of the same order changes nothing.
func (h *Handlers) restoreStock(ctx context.Context, order *ordersDomain.Order) error {
	total := 0
	for _, item := range order.LineItems {
		total += item.Quantity
	}

	recorded, err := h.deps.Restorations.TryRecord(ctx, &ordersDomain.StockRestoration{
		OrderID:    order.RemoteOrderID,
		Quantity:   total,
		RestoredAt: h.now().UTC(),
	})
	if err != nil {
		return err
	}
	if !recorded {
		h.deps.Logger.Info("stock already restored for cancelled order",
			slog.String("order_id", order.RemoteOrderID),
		)
		return nil
	}

	for _, item := range order.LineItems {
		offer, err := h.deps.Offers.GetByRemoteID(ctx, item.OfferID)
		if errors.Is(err, catalogDomain.ErrOfferNotFound) {
			h.deps.Logger.Warn("cannot restore stock of unknown offer",
				slog.String("order_id", order.RemoteOrderID),
				slog.String("offer_id", item.OfferID),
			)
			continue
		}
		if err != nil {
			return err
		}

		if err := h.deps.Offers.IncrementStock(ctx, item.OfferID, item.Quantity); err != nil {
			return err
		}
		if offer.ProductID.Valid {
			if err := h.deps.Products.IncrementStock(ctx, offer.ProductID.UUID, item.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handlers) notifyPaid(ctx context.Context, order *ordersDomain.Order) {
	recipient := order.BuyerEmail
	if recipient == "" {
		recipient = h.config.NotificationEmailTo
	}
	if recipient == "" {
		h.deps.Logger.Warn("no recipient for paid order notification",
			slog.String("order_id", order.RemoteOrderID),
		)
		return
	}

	h.notify(ctx, notificationDomain.Notification{
		Channel:   notificationDomain.ChannelEmail,
		Type:      notificationDomain.TypeOrderStatusUpdate,
		Recipient: recipient,
		Subject:   fmt.Sprintf("Order %s Status Update", order.RemoteOrderID),
		Message:   fmt.Sprintf("Your order %s has been paid and is being processed.", order.RemoteOrderID),
		TemplateData: map[string]any{
			"orderId": order.RemoteOrderID,
			"status":  order.Status,
		},
	})
}
