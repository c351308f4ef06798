package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/util"
)

// OrderStore is the slice of the persistence layer the order service needs.
type OrderStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error)
	CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem, cart *models.Cart) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	GetOrders(ctx context.Context) ([]models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// CheckoutLocker serializes concurrent checkouts of the same cart.
// Satisfied by redisclient.Client.
type CheckoutLocker interface {
	AcquireCheckoutLock(ctx context.Context, cartID string, ttl time.Duration) (bool, error)
	ReleaseCheckoutLock(ctx context.Context, cartID string) error
}

const checkoutLockTTL = 30 * time.Second

// OrderService handles the order creation workflow
type OrderService struct {
	store     OrderStore
	locker    CheckoutLocker
	publisher Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, locker CheckoutLocker, publisher Publisher) *OrderService {
	return &OrderService{
		store:     store,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// PlaceOrder snapshots the caller's cart into an immutable order.
// Preconditions are checked in a fixed order and the first failure
// short-circuits with a redirect hint, before any write. The order, its
// items and the cart clear then commit in a single transaction.
func (os *OrderService) PlaceOrder(ctx context.Context, userID string) ActionResult {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if userID == "" {
		util.OrdersRejectedTotal.WithLabelValues("unauthenticated").Inc()
		return failure("User is not authenticated")
	}

	user, err := os.store.GetUserByID(ctx, userID)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("user_not_found").Inc()
		os.logger.Error("Failed to resolve user at checkout",
			zap.String("user_id", userID),
			zap.Error(err))
		return failure("User not found")
	}

	cart, err := os.store.GetCartByUserID(ctx, userID)
	if err != nil {
		os.logger.Error("Failed to load cart at checkout", zap.Error(err))
		return failure(formatError(err))
	}
	if cart == nil || len(cart.Items) == 0 {
		util.OrdersRejectedTotal.WithLabelValues("empty_cart").Inc()
		return failureRedirect("Your cart is empty", "/cart")
	}

	if user.Address.Empty() {
		util.OrdersRejectedTotal.WithLabelValues("missing_address").Inc()
		return failureRedirect("No shipping address", "/shipping-address")
	}

	if user.PaymentMethod == "" {
		util.OrdersRejectedTotal.WithLabelValues("missing_payment_method").Inc()
		return failureRedirect("No payment method", "/payment-method")
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          user.ID,
		ShippingAddress: user.Address,
		PaymentMethod:   user.PaymentMethod,
		ItemsPrice:      cart.ItemsPrice,
		ShippingPrice:   cart.ShippingPrice,
		TaxPrice:        cart.TaxPrice,
		TotalPrice:      cart.TotalPrice,
	}

	if err := validateOrder(order, cart.Items); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("validation").Inc()
		return failure(err.Error())
	}

	if os.locker != nil {
		acquired, err := os.locker.AcquireCheckoutLock(ctx, cart.ID, checkoutLockTTL)
		if err != nil {
			os.logger.Warn("Checkout lock unavailable, relying on cart version guard",
				zap.String("cart_id", cart.ID),
				zap.Error(err))
		} else if !acquired {
			util.OrdersRejectedTotal.WithLabelValues("concurrent_checkout").Inc()
			return failure("Checkout already in progress")
		} else {
			defer func() {
				if err := os.locker.ReleaseCheckoutLock(ctx, cart.ID); err != nil {
					os.logger.Warn("Failed to release checkout lock", zap.Error(err))
				}
			}()
		}
	}

	// Prices and quantities are copied verbatim from the cart, never
	// recomputed, so checkout cannot drift from what the cart displayed.
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Slug:      item.Slug,
			Image:     item.Image,
			Qty:       item.Qty,
			Price:     item.Price,
		})
	}

	start := time.Now()
	if err := os.store.CreateOrderTx(ctx, order, items, cart); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("transaction").Inc()
		os.logger.Error("Checkout transaction failed",
			zap.String("user_id", userID),
			zap.String("cart_id", cart.ID),
			zap.Error(err))
		return failure(formatError(err))
	}
	util.CheckoutLatency.Observe(time.Since(start).Seconds())

	if order.ID == "" {
		// Unreachable under correct transactional execution.
		return failure("Order not created")
	}

	util.OrdersPlacedTotal.Inc()
	os.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID))

	if os.publisher != nil {
		eventItems := make([]models.OrderItemData, 0, len(items))
		for _, item := range items {
			eventItems = append(eventItems, models.OrderItemData{
				ProductID: item.ProductID,
				Qty:       item.Qty,
				Price:     item.Price.StringFixed(2),
			})
		}

		event := &models.OrderCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderCreated,
				Timestamp: time.Now(),
			},
			OrderID:       order.ID,
			UserID:        order.UserID,
			PaymentMethod: order.PaymentMethod,
			TotalPrice:    order.TotalPrice.StringFixed(2),
			Items:         eventItems,
		}
		if err := os.publisher.PublishOrderCreated(ctx, event); err != nil {
			os.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		}
	}

	return successRedirect("Order created", fmt.Sprintf("/order/%s", order.ID))
}

// validateOrder checks the assembled payload before any write: items must
// be non-empty and no amount may be negative.
func validateOrder(order *models.Order, items models.CartItems) error {
	if len(items) == 0 {
		return fmt.Errorf("order must contain at least one item")
	}
	for _, item := range items {
		if item.Qty < 1 {
			return fmt.Errorf("item quantity must be positive")
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("item price must not be negative")
		}
	}
	if order.ItemsPrice.IsNegative() || order.ShippingPrice.IsNegative() ||
		order.TaxPrice.IsNegative() || order.TotalPrice.IsNegative() {
		return fmt.Errorf("order amounts must not be negative")
	}
	return nil
}

// GetOrder retrieves an order with its items, restricted to the order's
// owner or an admin.
func (os *OrderService) GetOrder(ctx context.Context, identity models.Identity, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := os.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if order.UserID != identity.UserID && !identity.IsAdmin() {
		return nil, nil, fmt.Errorf("order %s: not accessible", orderID)
	}

	items, err := os.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetMyOrders retrieves the caller's orders
func (os *OrderService) GetMyOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return os.store.GetOrdersByUserID(ctx, userID)
}

// GetAllOrders retrieves every order, admin only
func (os *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return os.store.GetOrders(ctx)
}

// DeleteOrder removes an order and its items, admin only
func (os *OrderService) DeleteOrder(ctx context.Context, orderID string) ActionResult {
	if err := os.store.DeleteOrder(ctx, orderID); err != nil {
		os.logger.Error("Failed to delete order",
			zap.String("order_id", orderID),
			zap.Error(err))
		return failure(formatError(err))
	}
	return success("Order deleted successfully")
}
