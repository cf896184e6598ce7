package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/ttran/storefront-api/internal/entity"
)

type world struct {
	orders    *memOrderRepo
	inventory *memInventory
	loyalty   *memLoyalty
	carts     *memCarts
	gateway   *stubGateway
	notifier  *recordNotifier
	cache     *memCache
	idem      *memIdem
	place     *PlaceOrder
	finalize  *FinalizeOrder
}

func newWorld(products ...*domain.Product) *world {
	w := &world{
		orders:    newMemOrderRepo(),
		inventory: newMemInventory(products...),
		loyalty:   newMemLoyalty(),
		carts:     newMemCarts(),
		gateway:   &stubGateway{},
		notifier:  &recordNotifier{},
		cache:     newMemCache(),
		idem:      newMemIdem(),
	}
	w.place = NewPlaceOrder(w.orders, w.inventory, w.loyalty, w.carts,
		w.gateway, w.notifier, w.cache, w.idem, "https://shop.example.com")
	w.finalize = NewFinalizeOrder(w.orders, w.loyalty, w.notifier, w.cache)
	return w
}

func regularProduct(id string, price string, stock int64) *domain.Product {
	return &domain.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
		Kind:  domain.KindRegular,
	}
}

func loyaltyProduct(id string, pointsPrice, stock int64) *domain.Product {
	return &domain.Product{
		ID:          id,
		Name:        "Reward " + id,
		PointsPrice: pointsPrice,
		Stock:       stock,
		Kind:        domain.KindLoyaltyOnly,
	}
}

func orderInput(method string, total string, items ...OrderItemInput) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:        "user-1",
		PaymentMethod: method,
		Items:         items,
		Total:         decimal.RequireFromString(total),
		Shipping: domain.ShippingAddress{
			FirstName: "Ada", LastName: "L", Email: "ada@example.com",
			Phone: "555", Address: "1 Main St", City: "Springfield",
			State: "IL", ZipCode: "62701", Country: "US",
		},
	}
}

func item(productID string, qty int64, price string) OrderItemInput {
	return OrderItemInput{ProductID: productID, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func TestPlaceOrderCardSettlesImmediately(t *testing.T) {
	w := newWorld(regularProduct("p1", "49.99", 10))

	out, err := w.place.Execute(context.Background(), orderInput("card", "99.98", item("p1", 2, "49.99")))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	o := out.Order
	if o.Status != domain.StatusConfirmed || o.PaymentStatus != domain.PaymentPaid {
		t.Errorf("got status %s/%s, want confirmed/paid", o.Status, o.PaymentStatus)
	}
	if out.CheckoutURL != "" {
		t.Errorf("card order produced a checkout URL: %q", out.CheckoutURL)
	}
	if w.gateway.sessions != 0 {
		t.Errorf("card order created %d gateway sessions", w.gateway.sessions)
	}
	if got := w.inventory.stock("p1"); got != 8 {
		t.Errorf("stock after order = %d, want 8", got)
	}
	// 10% of 99.98 floored
	if o.PointsEarned != 9 {
		t.Errorf("pointsEarned = %d, want 9", o.PointsEarned)
	}
	if got := w.loyalty.balance("user-1"); got != 9 {
		t.Errorf("balance = %d, want 9", got)
	}
	if w.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", w.notifier.count())
	}
	if w.carts.clears != 1 {
		t.Errorf("cart clears = %d, want 1", w.carts.clears)
	}
	if s, ok, _ := w.cache.GetPaymentStatus(context.Background(), o.ID); !ok || s != domain.PaymentPaid {
		t.Errorf("cached payment status = %q (%v), want paid", s, ok)
	}
}

func TestPlaceOrderGatewayPathStaysPending(t *testing.T) {
	w := newWorld(regularProduct("p1", "20.00", 5))

	out, err := w.place.Execute(context.Background(), orderInput("stripe", "20.00", item("p1", 1, "20.00")))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	o := out.Order
	if o.Status != domain.StatusPending || o.PaymentStatus != domain.PaymentPending {
		t.Errorf("got status %s/%s, want pending/pending", o.Status, o.PaymentStatus)
	}
	if out.CheckoutURL == "" {
		t.Error("expected a checkout URL")
	}
	if o.SessionID != "cs_test_1" {
		t.Errorf("sessionID = %q", o.SessionID)
	}
	if w.gateway.lastMeta["order_id"] != o.ID {
		t.Errorf("session metadata order_id = %q, want %q", w.gateway.lastMeta["order_id"], o.ID)
	}
	// Earn is recorded on the order but not credited until payment confirms.
	if o.PointsEarned != 2 {
		t.Errorf("pointsEarned = %d, want 2", o.PointsEarned)
	}
	if got := w.loyalty.balance("user-1"); got != 0 {
		t.Errorf("balance before finalize = %d, want 0", got)
	}
	if w.notifier.count() != 0 {
		t.Errorf("notified before payment: %d", w.notifier.count())
	}
	// Stock is reserved up front regardless of path.
	if got := w.inventory.stock("p1"); got != 4 {
		t.Errorf("stock = %d, want 4", got)
	}
}

func TestPlaceOrderLoyaltyOnlyOverridesClientPoints(t *testing.T) {
	w := newWorld(loyaltyProduct("r1", 500, 3))
	w.loyalty.balances["user-1"] = 1200

	in := orderInput("points", "0", item("r1", 2, "0"))
	in.PointsUsed = 50 // client lies; the catalog cost wins

	out, err := w.place.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	o := out.Order
	if o.PointsUsed != 1000 {
		t.Errorf("pointsUsed = %d, want 1000", o.PointsUsed)
	}
	if o.PointsEarned != 0 {
		t.Errorf("loyalty-only order earned %d points", o.PointsEarned)
	}
	if o.Status != domain.StatusConfirmed || o.PaymentStatus != domain.PaymentPaid {
		t.Errorf("got status %s/%s, want confirmed/paid", o.Status, o.PaymentStatus)
	}
	if got := w.loyalty.balance("user-1"); got != 200 {
		t.Errorf("balance = %d, want 200", got)
	}
	if !o.Items[0].PaidWithPoints {
		t.Error("item not flagged paidWithPoints")
	}
	if w.gateway.sessions != 0 {
		t.Error("points order touched the gateway")
	}
}

func TestPlaceOrderInsufficientPoints(t *testing.T) {
	w := newWorld(loyaltyProduct("r1", 500, 3))
	w.loyalty.balances["user-1"] = 400

	_, err := w.place.Execute(context.Background(), orderInput("points", "0", item("r1", 1, "0")))
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *InsufficientPointsError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type %T: %v", err, err)
	}
	if pErr.Required != 500 || pErr.Available != 400 {
		t.Errorf("got required=%d available=%d, want 500/400", pErr.Required, pErr.Available)
	}
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Error("errors.Is(err, ErrInsufficientPoints) = false")
	}

	// Nothing moved.
	if got := w.inventory.stock("r1"); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}
	if got := w.loyalty.balance("user-1"); got != 400 {
		t.Errorf("balance = %d, want 400", got)
	}
	if orders, _ := w.orders.List(context.Background()); len(orders) != 0 {
		t.Errorf("%d orders created", len(orders))
	}
}

func TestPlaceOrderHybridCardWithPoints(t *testing.T) {
	w := newWorld(regularProduct("p1", "100.00", 5))
	w.loyalty.balances["user-1"] = 300

	in := orderInput("card", "98.00", item("p1", 1, "100.00"))
	in.PointsUsed = 200 // $2.00 off

	out, err := w.place.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Order.PointsUsed != 200 {
		t.Errorf("pointsUsed = %d, want 200", out.Order.PointsUsed)
	}
	if out.Order.PointsEarned != 9 {
		t.Errorf("pointsEarned = %d, want 9", out.Order.PointsEarned)
	}
	// 300 - 200 spent + 9 earned
	if got := w.loyalty.balance("user-1"); got != 109 {
		t.Errorf("balance = %d, want 109", got)
	}
}

func TestPlaceOrderEmptyOrder(t *testing.T) {
	w := newWorld()
	_, err := w.place.Execute(context.Background(), orderInput("card", "0"))
	if !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("err = %v, want ErrEmptyOrder", err)
	}
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	w := newWorld()
	_, err := w.place.Execute(context.Background(), orderInput("card", "10.00", item("ghost", 1, "10.00")))
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
}

func TestPlaceOrderReservationCompensation(t *testing.T) {
	w := newWorld(regularProduct("p1", "10.00", 5), regularProduct("p2", "10.00", 1))

	_, err := w.place.Execute(context.Background(), orderInput("card", "50.00",
		item("p1", 2, "10.00"), item("p2", 3, "10.00")))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	// p1's reservation must have been rolled back.
	if got := w.inventory.stock("p1"); got != 5 {
		t.Errorf("p1 stock = %d, want 5", got)
	}
	if got := w.inventory.releases["p1"]; got != 2 {
		t.Errorf("p1 released = %d, want 2", got)
	}
	if got := w.inventory.stock("p2"); got != 1 {
		t.Errorf("p2 stock = %d, want 1", got)
	}
}

func TestPlaceOrderNoOversellUnderConcurrency(t *testing.T) {
	w := newWorld(regularProduct("p1", "10.00", 1))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.place.Execute(context.Background(), orderInput("card", "10.00", item("p1", 1, "10.00")))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInsufficientStock) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d orders succeeded for 1 unit of stock", succeeded)
	}
	if got := w.inventory.stock("p1"); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

func TestPlaceOrderConcurrentPointsSpendNeverNegative(t *testing.T) {
	w := newWorld(loyaltyProduct("r1", 500, 100))
	w.loyalty.balances["user-1"] = 700

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.place.Execute(context.Background(), orderInput("points", "0", item("r1", 1, "0")))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInsufficientPoints) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	// 700 points funds exactly one 500-point redemption.
	if succeeded != 1 {
		t.Errorf("%d redemptions succeeded, want 1", succeeded)
	}
	if got := w.loyalty.balance("user-1"); got != 200 {
		t.Errorf("balance = %d, want 200", got)
	}
}

func TestPlaceOrderGatewayFailureMarksPaymentFailed(t *testing.T) {
	w := newWorld(regularProduct("p1", "25.00", 5))
	w.gateway.fail = true

	_, err := w.place.Execute(context.Background(), orderInput("stripe", "25.00", item("p1", 1, "25.00")))
	if err == nil {
		t.Fatal("expected error")
	}
	var sErr *GatewaySessionError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type %T: %v", err, err)
	}

	order, gerr := w.orders.GetByID(context.Background(), sErr.OrderID)
	if gerr != nil {
		t.Fatalf("GetByID: %v", gerr)
	}
	if order.PaymentStatus != domain.PaymentFailed {
		t.Errorf("paymentStatus = %s, want failed", order.PaymentStatus)
	}
}

func TestPlaceOrderDebitFailureAbortsCreation(t *testing.T) {
	w := newWorld(loyaltyProduct("r1", 500, 3))
	w.loyalty.balances["user-1"] = 600
	w.loyalty.debitErr = errors.New("ledger unavailable")

	_, err := w.place.Execute(context.Background(), orderInput("points", "0", item("r1", 1, "0")))
	if err == nil {
		t.Fatal("expected error")
	}
	if orders, _ := w.orders.List(context.Background()); len(orders) != 0 {
		t.Errorf("%d orders created after failed debit", len(orders))
	}
	if got := w.inventory.stock("r1"); got != 3 {
		t.Errorf("stock = %d, want 3 (reservation released)", got)
	}
}

func TestPlaceOrderCreateFailureRefundsAndReleases(t *testing.T) {
	w := newWorld(loyaltyProduct("r1", 500, 3))
	w.loyalty.balances["user-1"] = 600
	w.orders.createErr = errors.New("db down")

	_, err := w.place.Execute(context.Background(), orderInput("points", "0", item("r1", 1, "0")))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := w.loyalty.balance("user-1"); got != 600 {
		t.Errorf("balance = %d, want 600 (debit refunded)", got)
	}
	if got := w.inventory.stock("r1"); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}
}

func TestPlaceOrderIdempotencyKey(t *testing.T) {
	w := newWorld(regularProduct("p1", "10.00", 10))

	in := orderInput("card", "10.00", item("p1", 1, "10.00"))
	in.IdempotencyKey = "key-1"

	first, err := w.place.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	second, err := w.place.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("retry Execute: %v", err)
	}
	if second.Order.ID != first.Order.ID {
		t.Errorf("retry created a new order: %s != %s", second.Order.ID, first.Order.ID)
	}
	if got := w.inventory.stock("p1"); got != 9 {
		t.Errorf("stock = %d, want 9 (no double reservation)", got)
	}
}

func TestPlaceOrderInFlightDuplicateRejected(t *testing.T) {
	w := newWorld(regularProduct("p1", "10.00", 10))

	in := orderInput("card", "10.00", item("p1", 1, "10.00"))
	in.IdempotencyKey = "key-2"

	// Simulate a request that locked the key but has not finished yet.
	if ok, _ := w.idem.TryLock(context.Background(), in.UserID, in.IdempotencyKey); !ok {
		t.Fatal("setup TryLock failed")
	}

	_, err := w.place.Execute(context.Background(), in)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}
