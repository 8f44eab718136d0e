package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	"github.com/allisson/marketsync/internal/marketplace"
)

// HandleOfferUpdated overwrites price, quantity, stock and status of the local
// offer with the values carried by the event. offer.ended always sets ENDED.
func (h *Handlers) HandleOfferUpdated(ctx context.Context, event *eventsDomain.SyncEvent) error {
	remote, err := decodeOffer(event)
	if err != nil {
		return err
	}

	unlock, err := h.deps.Locker.Lock(ctx, offerKey(remote.ID))
	if err != nil {
		return err
	}
	defer unlock()

	return h.deps.TxManager.WithTx(ctx, func(ctx context.Context) error {
		offer, err := h.deps.Offers.GetByRemoteID(ctx, remote.ID)
		if errors.Is(err, catalogDomain.ErrOfferNotFound) {
			return h.createOffer(ctx, event, remote)
		}
		if err != nil {
			return err
		}

		applyRemoteOffer(offer, event.EventType, remote)
		offer.MarkSynced(h.now().UTC())
		return h.deps.Offers.Update(ctx, offer)
	})
}

func (h *Handlers) createOffer(
	ctx context.Context,
	event *eventsDomain.SyncEvent,
	remote *marketplace.Offer,
) error {
	if h.config.AccountID == uuid.Nil {
		h.deps.Logger.Warn("ignoring event for unknown offer",
			slog.String("event_id", event.EventID),
			slog.String("offer_id", remote.ID),
		)
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	now := h.now().UTC()
	offer := &catalogDomain.Offer{
		ID:            id,
		AccountID:     h.config.AccountID,
		RemoteOfferID: remote.ID,
		Title:         remote.Name,
		Description:   remote.Description,
		CreatedAt:     now,
	}
	applyRemoteOffer(offer, event.EventType, remote)
	offer.MarkSynced(now)
	return h.deps.Offers.Create(ctx, offer)
}

func applyRemoteOffer(offer *catalogDomain.Offer, eventType string, remote *marketplace.Offer) {
	offer.Price = remote.PriceAmount()
	if remote.SellingMode != nil && remote.SellingMode.Price.Currency != "" {
		offer.Currency = remote.SellingMode.Price.Currency
	}
	offer.Quantity = remote.Available()
	offer.StockQuantity = remote.Available()
	offer.Status = remote.Status()
	if eventType == eventsDomain.TypeOfferEnded {
		offer.Status = catalogDomain.OfferStatusEnded
	}
	if remote.Name != "" {
		offer.Title = remote.Name
	}
}
