package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ttran/storefront-api/internal/adapter/observ"
	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/logging"
)

const (
	// Card payments are captured client-side via a payment intent before the
	// order request arrives, so they settle immediately.
	PaymentMethodCard = "card"
	// Points payments never touch the gateway.
	PaymentMethodPoints = "points"
)

// ErrInsufficientPoints is the ledger-level sentinel; the workflow wraps it
// into InsufficientPointsError when it knows both sides of the shortfall.
var ErrInsufficientPoints = errors.New("insufficient loyalty points")

func (e *InsufficientPointsError) Is(target error) bool { return target == ErrInsufficientPoints }

type OrderItemInput struct {
	ProductID string
	Quantity  int64
	Price     decimal.Decimal
	Size      string
	Color     string
}

type PlaceOrderInput struct {
	UserID         string
	IdempotencyKey string
	PaymentMethod  string
	Items          []OrderItemInput
	Shipping       domain.ShippingAddress
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	PointsUsed     int64
}

type PlaceOrderOutput struct {
	Order       *domain.Order
	CheckoutURL string
}

// PlaceOrder is the settlement workflow entry point: classify the payment
// path, reserve inventory, persist the order, then either settle points and
// notify immediately or hand off to the hosted payment page.
type PlaceOrder struct {
	orders    OrderRepo
	inventory InventoryLedger
	loyalty   LoyaltyLedger
	carts     CartStore
	gateway   PaymentGateway
	notifier  NotificationSink
	cache     OrderCache
	idem      IdempotencyStore
	baseURL   string // public storefront base, for success/cancel redirects
}

func NewPlaceOrder(orders OrderRepo, inventory InventoryLedger, loyalty LoyaltyLedger,
	carts CartStore, gateway PaymentGateway, notifier NotificationSink,
	cache OrderCache, idem IdempotencyStore, baseURL string) *PlaceOrder {
	return &PlaceOrder{
		orders:    orders,
		inventory: inventory,
		loyalty:   loyalty,
		carts:     carts,
		gateway:   gateway,
		notifier:  notifier,
		cache:     cache,
		idem:      idem,
		baseURL:   baseURL,
	}
}

func (uc *PlaceOrder) Execute(ctx context.Context, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if len(in.Items) == 0 {
		return PlaceOrderOutput{}, ErrEmptyOrder
	}

	if in.IdempotencyKey != "" {
		// Fast path: a retried request returns the order it already created.
		if id, ok, _ := uc.idem.Recall(ctx, in.UserID, in.IdempotencyKey); ok {
			if order, err := uc.orders.GetByID(ctx, id); err == nil {
				return PlaceOrderOutput{Order: order}, nil
			}
		}
		ok, err := uc.idem.TryLock(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			return PlaceOrderOutput{}, err
		}
		if !ok {
			return PlaceOrderOutput{}, ErrDuplicate
		}
	}

	// Classification runs to completion before any mutation.
	var (
		hasLoyaltyOnly bool
		requiredPoints int64
		loyaltyOnly    = map[string]bool{}
		checkout       = make([]CheckoutItem, 0, len(in.Items))
	)
	for _, it := range in.Items {
		p, err := uc.inventory.Product(ctx, it.ProductID)
		if err != nil {
			return PlaceOrderOutput{}, err
		}
		if p.Kind == domain.KindLoyaltyOnly {
			hasLoyaltyOnly = true
			loyaltyOnly[p.ID] = true
			requiredPoints += p.PointsPrice * it.Quantity
		}
		checkout = append(checkout, CheckoutItem{
			Name:      p.Name,
			Image:     p.Image,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
		})
	}

	pointsUsed := in.PointsUsed
	if hasLoyaltyOnly {
		bal, err := uc.loyalty.Balance(ctx, in.UserID)
		if err != nil {
			return PlaceOrderOutput{}, err
		}
		if bal < requiredPoints {
			return PlaceOrderOutput{}, &InsufficientPointsError{Required: requiredPoints, Available: bal}
		}
		// The loyalty-only cost is authoritative; whatever the client sent
		// as pointsUsed is overridden.
		pointsUsed = requiredPoints
	} else if pointsUsed > 0 {
		bal, err := uc.loyalty.Balance(ctx, in.UserID)
		if err != nil {
			return PlaceOrderOutput{}, err
		}
		if bal < pointsUsed {
			return PlaceOrderOutput{}, &InsufficientPointsError{Required: pointsUsed, Available: bal}
		}
	}

	// Loyalty-only items never additionally earn.
	var pointsEarned int64
	if !hasLoyaltyOnly {
		pointsEarned = domain.EarnedPoints(in.Total)
	}

	needsGateway := in.Total.IsPositive() && in.PaymentMethod != PaymentMethodPoints
	immediate := in.PaymentMethod == PaymentMethodCard || !needsGateway

	// Reserve every line; roll back the lines already taken if one fails.
	reserved := make([]OrderItemInput, 0, len(in.Items))
	release := func() {
		for _, it := range reserved {
			if err := uc.inventory.Release(ctx, it.ProductID, it.Quantity); err != nil {
				logging.FromCtx(ctx).Error("release reservation", "product", it.ProductID, "err", err)
			}
		}
	}
	for _, it := range in.Items {
		if err := uc.inventory.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			release()
			return PlaceOrderOutput{}, err
		}
		reserved = append(reserved, it)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		Items:           buildItems(in.Items, loyaltyOnly),
		TotalAmount:     in.Total,
		PointsUsed:      pointsUsed,
		PointsEarned:    pointsEarned,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		ShippingAddress: in.Shipping,
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if immediate {
		order.Status = domain.StatusConfirmed
		order.PaymentStatus = domain.PaymentPaid
	}

	// Immediate paths spend points up front: a failed debit aborts the
	// whole creation with no order row. Gateway paths defer the debit to
	// finalize.
	debited := false
	if immediate && pointsUsed > 0 {
		if err := uc.loyalty.Debit(ctx, in.UserID, pointsUsed, order.ID); err != nil {
			release()
			return PlaceOrderOutput{}, err
		}
		debited = true
	}

	if err := uc.orders.Create(ctx, order); err != nil {
		if debited {
			if cerr := uc.loyalty.Credit(ctx, in.UserID, pointsUsed, order.ID); cerr != nil {
				logging.FromCtx(ctx).Error("refund points after failed create", "order", order.ID, "err", cerr)
			}
		}
		release()
		return PlaceOrderOutput{}, err
	}

	out := PlaceOrderOutput{Order: order}
	if immediate {
		uc.settle(ctx, order)
	} else {
		successURL := fmt.Sprintf("%s/checkout/success?orderId=%s", uc.baseURL, order.ID)
		cancelURL := fmt.Sprintf("%s/checkout/cancel?orderId=%s", uc.baseURL, order.ID)
		sess, err := uc.gateway.CreateCheckoutSession(ctx, checkout, successURL, cancelURL, map[string]string{
			"order_id": order.ID,
			"user_id":  in.UserID,
		})
		if err != nil {
			// Without a session the order is not awaiting payment; mark it
			// failed so it cannot be mistaken for a pending one.
			if ferr := uc.orders.MarkPaymentFailed(ctx, order.ID); ferr != nil {
				logging.FromCtx(ctx).Error("mark payment failed", "order", order.ID, "err", ferr)
			}
			observ.GatewaySessionFailures.Inc()
			return PlaceOrderOutput{}, &GatewaySessionError{OrderID: order.ID, Err: err}
		}
		order.SessionID = sess.ID
		if err := uc.orders.SetSessionID(ctx, order.ID, sess.ID); err != nil {
			return PlaceOrderOutput{}, err
		}
		out.CheckoutURL = sess.URL
	}

	if err := uc.carts.Clear(ctx, in.UserID); err != nil {
		logging.FromCtx(ctx).Warn("clear cart", "user", in.UserID, "err", err)
	}
	if in.IdempotencyKey != "" {
		_ = uc.idem.Remember(ctx, in.UserID, in.IdempotencyKey, order.ID)
	}
	observ.OrdersCreated.WithLabelValues(order.PaymentMethod).Inc()
	return out, nil
}

// settle applies the post-payment side effects of an immediately confirmed
// order: earn credit, notification, status cache. Points were already
// debited before the order was persisted.
func (uc *PlaceOrder) settle(ctx context.Context, order *domain.Order) {
	l := logging.FromCtx(ctx)
	if order.PointsEarned > 0 {
		if err := uc.loyalty.Credit(ctx, order.UserID, order.PointsEarned, order.ID); err != nil {
			l.Error("credit earned points", "order", order.ID, "err", err)
		}
	}
	if err := uc.notifier.OrderConfirmed(ctx, order.UserID, order.ID); err != nil {
		l.Warn("order confirmation notify", "order", order.ID, "err", err)
	}
	if uc.cache != nil {
		_ = uc.cache.SetPaymentStatus(ctx, order.ID, order.PaymentStatus)
	}
}

func buildItems(in []OrderItemInput, loyaltyOnly map[string]bool) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(in))
	for _, it := range in {
		items = append(items, domain.OrderItem{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			Price:          it.Price,
			Size:           it.Size,
			Color:          it.Color,
			PaidWithPoints: loyaltyOnly[it.ProductID],
		})
	}
	return items
}
