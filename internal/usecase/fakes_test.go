package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	domain "github.com/ttran/storefront-api/internal/entity"
)

type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	createErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[string]*domain.Order{}}
}

func (r *memOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) GetBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.SessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) List(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (r *memOrderRepo) SetSessionID(_ context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.SessionID = sessionID
	return nil
}

func (r *memOrderRepo) MarkPaid(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}
	if o.PaymentStatus != domain.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentPaid
	o.Status = domain.StatusConfirmed
	return true, nil
}

func (r *memOrderRepo) MarkPaymentFailed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.PaymentStatus = domain.PaymentFailed
	return nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (r *memOrderRepo) UpdateStatusIf(_ context.Context, id string, from, to domain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

type memInventory struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	releases map[string]int64
}

func newMemInventory(products ...*domain.Product) *memInventory {
	m := &memInventory{products: map[string]*domain.Product{}, releases: map[string]int64{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memInventory) Product(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memInventory) Reserve(_ context.Context, productID string, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (m *memInventory) Release(_ context.Context, productID string, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += qty
	m.releases[productID] += qty
	return nil
}

func (m *memInventory) stock(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

type memLoyalty struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  []domain.LoyaltyEntry
	debitErr error
}

func newMemLoyalty() *memLoyalty {
	return &memLoyalty{balances: map[string]int64{}}
}

func (m *memLoyalty) Balance(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *memLoyalty) Debit(_ context.Context, userID string, points int64, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.debitErr != nil {
		return m.debitErr
	}
	if m.balances[userID] < points {
		return ErrInsufficientPoints
	}
	m.balances[userID] -= points
	m.entries = append(m.entries, domain.LoyaltyEntry{
		UserID: userID, Points: points, Direction: domain.DirectionSpent, OrderID: orderID,
	})
	return nil
}

func (m *memLoyalty) Credit(_ context.Context, userID string, points int64, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += points
	m.entries = append(m.entries, domain.LoyaltyEntry{
		UserID: userID, Points: points, Direction: domain.DirectionEarned, OrderID: orderID,
	})
	return nil
}

func (m *memLoyalty) History(_ context.Context, userID string) ([]domain.LoyaltyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LoyaltyEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLoyalty) balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

func (m *memLoyalty) count(dir domain.Direction) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Direction == dir {
			n++
		}
	}
	return n
}

type memCarts struct {
	mu     sync.Mutex
	carts  map[string]*domain.Cart
	clears int
}

func newMemCarts() *memCarts { return &memCarts{carts: map[string]*domain.Cart{}} }

func (m *memCarts) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return &domain.Cart{UserID: userID}, nil
}

func (m *memCarts) Upsert(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cart
	m.carts[cart.UserID] = &cp
	return nil
}

func (m *memCarts) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	m.clears++
	return nil
}

type stubGateway struct {
	mu       sync.Mutex
	sessions int
	fail     bool
	lastMeta map[string]string
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, _ []CheckoutItem, _, _ string, metadata map[string]string) (CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return CheckoutSession{}, errors.New("gateway down")
	}
	g.sessions++
	g.lastMeta = metadata
	return CheckoutSession{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}, nil
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, _ decimal.Decimal, _ string, _ map[string]string) (PaymentIntent, error) {
	return PaymentIntent{ID: "pi_test_1", ClientSecret: "pi_test_1_secret"}, nil
}

func (g *stubGateway) RetrieveSession(_ context.Context, sessionID string) (CheckoutSession, error) {
	return CheckoutSession{ID: sessionID, PaymentStatus: "paid"}, nil
}

type recordNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordNotifier) OrderConfirmed(_ context.Context, _, orderID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, orderID)
	return nil
}

func (n *recordNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type memCache struct {
	mu     sync.Mutex
	status map[string]domain.PaymentStatus
}

func newMemCache() *memCache { return &memCache{status: map[string]domain.PaymentStatus{}} }

func (c *memCache) SetPaymentStatus(_ context.Context, orderID string, status domain.PaymentStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[orderID] = status
	return nil
}

func (c *memCache) GetPaymentStatus(_ context.Context, orderID string) (domain.PaymentStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.status[orderID]
	return s, ok, nil
}

type memIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + ":" + key
	if m.locks[k] {
		return false, nil
	}
	m.locks[k] = true
	return true, nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+":"+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+":"+key]
	return v, ok, nil
}

var (
	_ OrderRepo        = (*memOrderRepo)(nil)
	_ InventoryLedger  = (*memInventory)(nil)
	_ LoyaltyLedger    = (*memLoyalty)(nil)
	_ CartStore        = (*memCarts)(nil)
	_ PaymentGateway   = (*stubGateway)(nil)
	_ NotificationSink = (*recordNotifier)(nil)
	_ OrderCache       = (*memCache)(nil)
	_ IdempotencyStore = (*memIdem)(nil)
)
