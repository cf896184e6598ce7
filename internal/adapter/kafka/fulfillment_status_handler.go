package kafka

import (
	"context"
	"fmt"

	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

// FulfillmentStatusHandler applies warehouse status changes to orders.
// Payment state is untouched here: shipped/delivered/cancelled are
// administrative moves on already-confirmed orders.
type FulfillmentStatusHandler struct {
	Repo  usecase.OrderRepo
	Cache usecase.OrderCache // optional
}

func NewFulfillmentStatusHandler(repo usecase.OrderRepo, cache usecase.OrderCache) *FulfillmentStatusHandler {
	return &FulfillmentStatusHandler{Repo: repo, Cache: cache}
}

func (h *FulfillmentStatusHandler) Handle(ctx context.Context, ev usecase.FulfillmentStatusMsg) error {
	var from, to domain.Status
	switch ev.Status {
	case "SHIPPED":
		from, to = domain.StatusConfirmed, domain.StatusShipped
	case "DELIVERED":
		from, to = domain.StatusShipped, domain.StatusDelivered
	case "CANCELLED":
		from, to = domain.StatusConfirmed, domain.StatusCancelled
	default:
		return fmt.Errorf("unknown fulfillment status %q", ev.Status)
	}

	// Guarded transition: a replayed or out-of-order event is a no-op.
	if _, err := h.Repo.UpdateStatusIf(ctx, ev.OrderID, from, to); err != nil {
		return err
	}
	return nil
}
