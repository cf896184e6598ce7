package usecase

import (
	"context"

	"github.com/ttran/storefront-api/internal/adapter/observ"
	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/logging"
)

// FinalizeOrder moves a gateway-path order from (pending, pending) to
// (confirmed, paid). Two triggers converge here: the success-page confirm
// keyed by order ID and the provider webhook keyed by session ID. The
// MarkPaid claim is atomic per order, so however many calls race, the
// points and the notification fire once.
type FinalizeOrder struct {
	orders   OrderRepo
	loyalty  LoyaltyLedger
	notifier NotificationSink
	cache    OrderCache
}

func NewFinalizeOrder(orders OrderRepo, loyalty LoyaltyLedger, notifier NotificationSink, cache OrderCache) *FinalizeOrder {
	return &FinalizeOrder{orders: orders, loyalty: loyalty, notifier: notifier, cache: cache}
}

func (uc *FinalizeOrder) ByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	claimed, err := uc.orders.MarkPaid(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Already settled by an earlier (or racing) finalize; re-read so the
		// caller sees the paid state, not the snapshot from before the race.
		return uc.orders.GetByID(ctx, orderID)
	}

	order.Status = domain.StatusConfirmed
	order.PaymentStatus = domain.PaymentPaid

	l := logging.FromCtx(ctx)
	if order.PointsUsed > 0 {
		if err := uc.loyalty.Debit(ctx, order.UserID, order.PointsUsed, order.ID); err != nil {
			// Balance moved between order creation and payment confirmation.
			// The ledger fails closed; surface loudly but keep the paid order.
			l.Error("debit points at finalize", "order", order.ID, "points", order.PointsUsed, "err", err)
		}
	}
	if order.PointsEarned > 0 {
		if err := uc.loyalty.Credit(ctx, order.UserID, order.PointsEarned, order.ID); err != nil {
			l.Error("credit points at finalize", "order", order.ID, "points", order.PointsEarned, "err", err)
		}
	}
	if err := uc.notifier.OrderConfirmed(ctx, order.UserID, order.ID); err != nil {
		l.Warn("order confirmation notify", "order", order.ID, "err", err)
	}
	if uc.cache != nil {
		_ = uc.cache.SetPaymentStatus(ctx, order.ID, domain.PaymentPaid)
	}
	observ.OrdersFinalized.Inc()
	return order, nil
}

// BySessionID resolves the provider's session reference to an order, then
// finalizes it. Used by the webhook path.
func (uc *FinalizeOrder) BySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	order, err := uc.orders.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.ByOrderID(ctx, order.ID)
}
