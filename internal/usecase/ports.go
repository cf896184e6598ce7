package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/ttran/storefront-api/internal/entity"
)

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetBySessionID resolves a payment-provider session reference back to
	// the order that created it.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	SetSessionID(ctx context.Context, id, sessionID string) error
	// MarkPaid atomically moves payment_status pending -> paid (and status
	// -> confirmed). Returns false when the order was not pending, which is
	// how racing finalizers lose the claim.
	MarkPaid(ctx context.Context, id string) (bool, error)
	MarkPaymentFailed(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error)
}

// InventoryLedger is the single source of truth for sellable stock.
type InventoryLedger interface {
	Product(ctx context.Context, id string) (*domain.Product, error)
	// Reserve decrements stock iff enough is available, in one conditional
	// write. Returns ErrInsufficientStock without mutating otherwise.
	Reserve(ctx context.Context, productID string, qty int64) error
	// Release restores stock reserved earlier in the same request. Only used
	// to compensate a partially failed reservation pass.
	Release(ctx context.Context, productID string, qty int64) error
}

// LoyaltyLedger holds per-user points balances plus the append-only history.
type LoyaltyLedger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	// Debit fails closed with ErrInsufficientPoints; check and decrement are
	// a single conditional write so concurrent spends cannot go negative.
	Debit(ctx context.Context, userID string, points int64, orderID string) error
	Credit(ctx context.Context, userID string, points int64, orderID string) error
	History(ctx context.Context, userID string) ([]domain.LoyaltyEntry, error)
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Upsert(ctx context.Context, cart *domain.Cart) error
	Clear(ctx context.Context, userID string) error
}

// CheckoutItem is a display line forwarded to the hosted payment page.
type CheckoutItem struct {
	Name      string
	Image     string
	UnitPrice decimal.Decimal
	Quantity  int64
}

type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, items []CheckoutItem, successURL, cancelURL string, metadata map[string]string) (CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (PaymentIntent, error)
	RetrieveSession(ctx context.Context, sessionID string) (CheckoutSession, error)
}

// NotificationSink is best-effort: failures are logged, never propagated
// into the settlement path.
type NotificationSink interface {
	OrderConfirmed(ctx context.Context, userID, orderID string) error
}

type OrderCache interface {
	SetPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) error
	GetPaymentStatus(ctx context.Context, orderID string) (domain.PaymentStatus, bool, error)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}
