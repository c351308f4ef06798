package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/store"
)

func checkoutFixture(t *testing.T) (*fakeStore, *fakePublisher, *fakeLocker, *OrderService) {
	t.Helper()
	fs := newFakeStore()
	fs.users["u1"] = &models.User{
		ID:    "u1",
		Name:  "Jane",
		Email: "jane@example.com",
		Role:  models.RoleUser,
		Address: models.ShippingAddress{
			FullName:      "Jane Doe",
			StreetAddress: "1 Main St",
			City:          "Springfield",
			PostalCode:    "12345",
			Country:       "US",
		},
		PaymentMethod: models.PaymentMethodPayPal,
	}
	fs.carts = append(fs.carts, &models.Cart{
		ID:     "c1",
		UserID: "u1",
		Items: models.CartItems{
			{ProductID: "p1", Name: "Polo Shirt", Slug: "polo-shirt", Qty: 2, Price: dec("24.99")},
			{ProductID: "p2", Name: "Hoodie", Slug: "hoodie", Qty: 1, Price: dec("59.99")},
		},
		ItemsPrice:    dec("109.97"),
		ShippingPrice: dec("0"),
		TaxPrice:      dec("16.50"),
		TotalPrice:    dec("126.47"),
		Version:       3,
	})
	pub := &fakePublisher{}
	locker := &fakeLocker{}
	return fs, pub, locker, NewOrderService(fs, locker, pub)
}

func TestPlaceOrderUnauthenticated(t *testing.T) {
	fs, pub, _, svc := checkoutFixture(t)

	res := svc.PlaceOrder(context.Background(), "")
	assert.False(t, res.Success)
	assert.Equal(t, "User is not authenticated", res.Message)
	assert.Equal(t, 0, fs.writes)
	assert.Empty(t, pub.created)
}

func TestPlaceOrderUserNotFound(t *testing.T) {
	fs, _, _, svc := checkoutFixture(t)

	res := svc.PlaceOrder(context.Background(), "ghost")
	assert.False(t, res.Success)
	assert.Equal(t, "User not found", res.Message)
	assert.Equal(t, 0, fs.writes)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	fs, _, _, svc := checkoutFixture(t)
	fs.carts[0].Items = models.CartItems{}

	res := svc.PlaceOrder(context.Background(), "u1")
	assert.False(t, res.Success)
	assert.Equal(t, "Your cart is empty", res.Message)
	assert.Equal(t, "/cart", res.RedirectTo)
	assert.Equal(t, 0, fs.writes)
}

func TestPlaceOrderMissingAddress(t *testing.T) {
	fs, _, _, svc := checkoutFixture(t)
	fs.users["u1"].Address = models.ShippingAddress{}

	res := svc.PlaceOrder(context.Background(), "u1")
	assert.False(t, res.Success)
	assert.Equal(t, "/shipping-address", res.RedirectTo)
	assert.Equal(t, 0, fs.writes)
}

func TestPlaceOrderMissingPaymentMethod(t *testing.T) {
	fs, _, _, svc := checkoutFixture(t)
	fs.users["u1"].PaymentMethod = ""

	res := svc.PlaceOrder(context.Background(), "u1")
	assert.False(t, res.Success)
	assert.Equal(t, "/payment-method", res.RedirectTo)
	assert.Equal(t, 0, fs.writes)
}

func TestPlaceOrderPreconditionOrdering(t *testing.T) {
	fs, _, _, svc := checkoutFixture(t)
	// All three preconditions fail at once; the cart check wins.
	fs.carts[0].Items = models.CartItems{}
	fs.users["u1"].Address = models.ShippingAddress{}
	fs.users["u1"].PaymentMethod = ""

	res := svc.PlaceOrder(context.Background(), "u1")
	assert.Equal(t, "/cart", res.RedirectTo)
}

func TestPlaceOrderSuccess(t *testing.T) {
	fs, pub, locker, svc := checkoutFixture(t)
	ctx := context.Background()

	res := svc.PlaceOrder(ctx, "u1")
	require.True(t, res.Success, res.Message)
	assert.Contains(t, res.RedirectTo, "/order/")

	require.Len(t, fs.orders, 1)
	var order *models.Order
	for _, o := range fs.orders {
		order = o
	}
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, models.PaymentMethodPayPal, order.PaymentMethod)
	assert.Equal(t, "Jane Doe", order.ShippingAddress.FullName)
	assert.True(t, order.TotalPrice.Equal(dec("126.47")), "amounts are copied from the cart verbatim")
	assert.False(t, order.IsPaid)

	items := fs.items[order.ID]
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 2, items[0].Qty)
	assert.True(t, items[0].Price.Equal(dec("24.99")))
	assert.Equal(t, "p2", items[1].ProductID, "lines keep the position they held in the cart")
	assert.Equal(t, 0, items[0].LineNo)
	assert.Equal(t, 1, items[1].LineNo)

	cart, err := fs.GetCartByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items, "cart is cleared in the same transaction")
	assert.True(t, cart.TotalPrice.Equal(dec("0")))

	assert.Equal(t, 1, locker.acquires)
	assert.Equal(t, 1, locker.releases)

	require.Len(t, pub.created, 1)
	assert.Equal(t, order.ID, pub.created[0].OrderID)
	assert.Equal(t, "126.47", pub.created[0].TotalPrice)
	assert.Len(t, pub.created[0].Items, 2)
}

func TestPlaceOrderCartConflict(t *testing.T) {
	fs, pub, _, svc := checkoutFixture(t)
	fs.createOrderErr = store.ErrCartConflict

	res := svc.PlaceOrder(context.Background(), "u1")
	assert.False(t, res.Success)
	assert.Equal(t, "Your cart changed during checkout, please try again", res.Message)
	assert.Empty(t, fs.orders)
	assert.Empty(t, pub.created)
}

func TestPlaceOrderConcurrentCheckoutRejected(t *testing.T) {
	fs, _, locker, svc := checkoutFixture(t)
	locker.held = true

	res := svc.PlaceOrder(context.Background(), "u1")
	assert.False(t, res.Success)
	assert.Equal(t, "Checkout already in progress", res.Message)
	assert.Equal(t, 0, fs.writes)
}

func TestPlaceOrderProceedsWhenLockerUnavailable(t *testing.T) {
	_, _, locker, svc := checkoutFixture(t)
	locker.acquireErr = errors.New("redis down")

	res := svc.PlaceOrder(context.Background(), "u1")
	assert.True(t, res.Success, "version guard still protects the transaction")
	assert.Equal(t, 0, locker.releases, "never held, nothing to release")
}

func TestPlaceOrderRejectsNegativeAmounts(t *testing.T) {
	fs, _, _, svc := checkoutFixture(t)
	fs.carts[0].TotalPrice = dec("-1")

	res := svc.PlaceOrder(context.Background(), "u1")
	assert.False(t, res.Success)
	assert.Equal(t, 0, fs.writes)
}

func TestGetOrderOwnerOrAdminOnly(t *testing.T) {
	fs, _, _, svc := checkoutFixture(t)
	ctx := context.Background()

	require.True(t, svc.PlaceOrder(ctx, "u1").Success)
	var orderID string
	for id := range fs.orders {
		orderID = id
	}

	_, _, err := svc.GetOrder(ctx, models.Identity{UserID: "u1", Role: models.RoleUser}, orderID)
	assert.NoError(t, err)

	_, _, err = svc.GetOrder(ctx, models.Identity{UserID: "u2", Role: models.RoleUser}, orderID)
	assert.Error(t, err)

	order, items, err := svc.GetOrder(ctx, models.Identity{UserID: "admin-1", Role: models.RoleAdmin}, orderID)
	assert.NoError(t, err)
	assert.Equal(t, orderID, order.ID)
	assert.Len(t, items, 2)
}
