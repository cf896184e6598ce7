package queue

import (
	"context"

	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

// NotificationWriter is the port to the notification store.
type NotificationWriter interface {
	Insert(ctx context.Context, n *domain.Notification) error
}

// OrderConfirmedHandler turns confirmation events into persisted
// notification rows for the user's inbox.
type OrderConfirmedHandler struct {
	Store NotificationWriter
}

func NewOrderConfirmedHandler(store NotificationWriter) *OrderConfirmedHandler {
	return &OrderConfirmedHandler{Store: store}
}

// HandleConfirmed is intended to be used with the JSON adapter
// (queue.JSONHandler[usecase.OrderConfirmedMsg]).
func (h *OrderConfirmedHandler) HandleConfirmed(ctx context.Context, msg usecase.OrderConfirmedMsg) error {
	return h.Store.Insert(ctx, &domain.Notification{
		UserID:  msg.UserID,
		Title:   "Order Confirmed",
		Message: "Your order has been confirmed and is being processed.",
		Type:    domain.NotifyOrderConfirmed,
		OrderID: msg.OrderID,
	})
}
