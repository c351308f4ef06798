package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
	"storefront/internal/paypal"
	"storefront/internal/store"
)

// fakeStore is an in-memory stand-in for the persistence layer. It counts
// mutating calls so tests can assert that a short-circuited workflow never
// wrote anything.
type fakeStore struct {
	users    map[string]*models.User
	products map[string]*models.Product
	carts    []*models.Cart
	orders   map[string]*models.Order
	items    map[string][]models.OrderItem

	writes         int
	createOrderErr error
	migrateErr     error
	loadCartErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*models.User),
		products: make(map[string]*models.Product),
		orders:   make(map[string]*models.Order),
		items:    make(map[string][]models.OrderItem),
	}
}

func (f *fakeStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	if f.loadCartErr != nil {
		return nil, f.loadCartErr
	}
	for _, c := range f.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetCartBySessionID(ctx context.Context, sessionCartID string) (*models.Cart, error) {
	if f.loadCartErr != nil {
		return nil, f.loadCartErr
	}
	for _, c := range f.carts {
		if c.SessionCartID == sessionCartID && c.UserID == "" {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateCart(ctx context.Context, cart *models.Cart) error {
	f.writes++
	cart.Version = 1
	f.carts = append(f.carts, cart)
	return nil
}

func (f *fakeStore) UpdateCartContents(ctx context.Context, cart *models.Cart) error {
	f.writes++
	cart.Version++
	return nil
}

func (f *fakeStore) MigrateCartTx(ctx context.Context, userID, sessionCartID string) (*models.Cart, error) {
	if f.migrateErr != nil {
		return nil, f.migrateErr
	}
	var session *models.Cart
	for _, c := range f.carts {
		if c.SessionCartID == sessionCartID && c.UserID == "" {
			session = c
			break
		}
	}
	if session == nil {
		return nil, nil
	}
	f.writes++
	kept := f.carts[:0]
	for _, c := range f.carts {
		if c.UserID == userID && c.ID != session.ID {
			continue
		}
		kept = append(kept, c)
	}
	f.carts = kept
	session.UserID = userID
	return session, nil
}

func (f *fakeStore) CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem, cart *models.Cart) error {
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.writes++
	order.CreatedAt = time.Now()
	f.orders[order.ID] = order
	for i := range items {
		items[i].OrderID = order.ID
		items[i].LineNo = i
	}
	f.items[order.ID] = items
	cart.Items = models.CartItems{}
	cart.ItemsPrice = decimal.Zero
	cart.ShippingPrice = decimal.Zero
	cart.TaxPrice = decimal.Zero
	cart.TotalPrice = decimal.Zero
	cart.Version++
	return nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeStore) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeStore) DeleteOrder(ctx context.Context, id string) error {
	if _, ok := f.orders[id]; !ok {
		return store.ErrNotFound
	}
	f.writes++
	delete(f.orders, id)
	delete(f.items, id)
	return nil
}

func (f *fakeStore) UpdateOrderPaymentResult(ctx context.Context, orderID string, result models.PaymentResult) error {
	o, ok := f.orders[orderID]
	if !ok || o.IsPaid {
		return store.ErrNotFound
	}
	f.writes++
	o.PaymentResult = result
	return nil
}

func (f *fakeStore) MarkOrderPaidTx(ctx context.Context, orderID string, result models.PaymentResult) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if o.IsPaid {
		return nil, store.ErrAlreadyPaid
	}
	f.writes++
	now := time.Now()
	o.IsPaid = true
	o.PaidAt = &now
	o.PaymentResult = result
	return o, nil
}

func (f *fakeStore) MarkOrderDeliveredTx(ctx context.Context, orderID string) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !o.IsPaid {
		return nil, store.ErrNotPaid
	}
	if o.IsDelivered {
		return nil, store.ErrAlreadyDelivered
	}
	f.writes++
	now := time.Now()
	o.IsDelivered = true
	o.DeliveredAt = &now
	return o, nil
}

// fakePublisher records every event it is handed.
type fakePublisher struct {
	created   []*models.OrderCreatedEvent
	paid      []*models.OrderPaidEvent
	delivered []*models.OrderDeliveredEvent
	migrated  []*models.CartMigratedEvent
}

func (p *fakePublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	p.created = append(p.created, event)
	return nil
}

func (p *fakePublisher) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	p.paid = append(p.paid, event)
	return nil
}

func (p *fakePublisher) PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error {
	p.delivered = append(p.delivered, event)
	return nil
}

func (p *fakePublisher) PublishCartMigrated(ctx context.Context, event *models.CartMigratedEvent) error {
	p.migrated = append(p.migrated, event)
	return nil
}

type fakeLocker struct {
	held       bool
	acquireErr error
	acquires   int
	releases   int
}

func (l *fakeLocker) AcquireCheckoutLock(ctx context.Context, cartID string, ttl time.Duration) (bool, error) {
	l.acquires++
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	return !l.held, nil
}

func (l *fakeLocker) ReleaseCheckoutLock(ctx context.Context, cartID string) error {
	l.releases++
	return nil
}

type fakePayPal struct {
	created    *paypal.CreatedOrder
	createErr  error
	capture    *paypal.CaptureResult
	captureErr error

	createCalls  int
	captureCalls int
}

func (p *fakePayPal) CreateOrder(ctx context.Context, amount decimal.Decimal) (*paypal.CreatedOrder, error) {
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.created, nil
}

func (p *fakePayPal) CaptureOrder(ctx context.Context, providerOrderID string) (*paypal.CaptureResult, error) {
	p.captureCalls++
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	return p.capture, nil
}

func testPricing() Pricing {
	return NewPricing(0.15, 10, 100)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
