package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/marketsync/internal/database"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
	"github.com/allisson/marketsync/internal/keylock"
	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
	notificationUseCase "github.com/allisson/marketsync/internal/notification/usecase"
)

// Config holds handler settings.
type Config struct {
	// AccountID owns offers that are first seen through an event. When it is
	// uuid.Nil such offers are ignored.
	AccountID uuid.UUID
	// StockLowEnabled enables stock_low notifications.
	StockLowEnabled bool
	// OrderPaidEnabled enables order_status_update notifications.
	OrderPaidEnabled bool
	// NotificationEmailTo is the recipient used when an order has no buyer email.
	NotificationEmailTo string
}

// Dependencies groups the collaborators of the entity handlers.
type Dependencies struct {
	TxManager    database.TxManager
	Locker       *keylock.Locker
	Offers       OfferRepository
	Products     ProductRepository
	Orders       OrderRepository
	Restorations StockRestorationRepository
	Notifier     notificationUseCase.Notifier
	OrderSource  OrderSource
	Tokens       TokenSource
	Logger       *slog.Logger
}

// Handlers implements the offer, inventory and order event handlers.
type Handlers struct {
	config Config
	deps   Dependencies
	now    func() time.Time
}

// NewHandlers creates the entity handlers. OrderSource and Tokens are optional;
// without them order events that carry only an id are stored as NEW.
func NewHandlers(config Config, deps Dependencies) *Handlers {
	if deps.Notifier == nil {
		deps.Notifier = notificationUseCase.NoopNotifier{}
	}
	if deps.Locker == nil {
		deps.Locker = keylock.New()
	}
	return &Handlers{
		config: config,
		deps:   deps,
		now:    time.Now,
	}
}

// Register binds every handler to its event types.
func (h *Handlers) Register(r *Registry) {
	r.Register(eventsDomain.TypeOfferCreated, HandlerFunc(h.HandleOfferUpdated))
	r.Register(eventsDomain.TypeOfferUpdated, HandlerFunc(h.HandleOfferUpdated))
	r.Register(eventsDomain.TypeOfferEnded, HandlerFunc(h.HandleOfferUpdated))
	r.Register(eventsDomain.TypeInventoryUpdated, HandlerFunc(h.HandleInventoryUpdated))
	r.Register(eventsDomain.TypeOrderCreated, HandlerFunc(h.HandleOrderCreated))
	r.Register(eventsDomain.TypeOrderUpdated, HandlerFunc(h.HandleOrderUpdated))
}

// NewDispatcher creates a Registry with every entity handler registered.
func NewDispatcher(config Config, deps Dependencies) *Registry {
	r := NewRegistry(deps.Logger)
	NewHandlers(config, deps).Register(r)
	return r
}

// notify queues n and only logs a failure.
func (h *Handlers) notify(ctx context.Context, n notificationDomain.Notification) {
	if err := h.deps.Notifier.Notify(ctx, n); err != nil {
		h.deps.Logger.Warn("failed to queue notification",
			slog.String("type", string(n.Type)),
			slog.Any("error", err),
		)
	}
}

// opsChannel addresses operator notifications by email when a recipient is
// configured and by webhook otherwise.
func (h *Handlers) opsChannel() (notificationDomain.Channel, string) {
	if h.config.NotificationEmailTo == "" {
		return notificationDomain.ChannelWebhook, ""
	}
	return notificationDomain.ChannelEmail, h.config.NotificationEmailTo
}

func offerKey(remoteOfferID string) string { return keylock.OfferKey(remoteOfferID) }

func orderKey(remoteOrderID string) string { return keylock.OrderKey(remoteOrderID) }

func productKey(id uuid.UUID) string { return keylock.ProductKey(id.String()) }
