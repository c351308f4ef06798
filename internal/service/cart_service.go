package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/util"
)

// CartStore is the slice of the persistence layer the cart service needs.
type CartStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetCartBySessionID(ctx context.Context, sessionCartID string) (*models.Cart, error)
	GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error)
	CreateCart(ctx context.Context, cart *models.Cart) error
	UpdateCartContents(ctx context.Context, cart *models.Cart) error
	MigrateCartTx(ctx context.Context, userID, sessionCartID string) (*models.Cart, error)
}

// Pricing holds the checkout pricing rules applied on every cart write.
type Pricing struct {
	TaxRate              decimal.Decimal
	FlatShippingPrice    decimal.Decimal
	FreeShippingMinPrice decimal.Decimal
}

// NewPricing builds Pricing from config floats
func NewPricing(taxRate, flatShipping, freeShippingMin float64) Pricing {
	return Pricing{
		TaxRate:              decimal.NewFromFloat(taxRate),
		FlatShippingPrice:    decimal.NewFromFloat(flatShipping),
		FreeShippingMinPrice: decimal.NewFromFloat(freeShippingMin),
	}
}

// CartService handles cart reads and writes. Aggregate totals are
// recomputed from the items on every write, never lazily.
type CartService struct {
	store     CartStore
	publisher Publisher
	pricing   Pricing
	logger    *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, publisher Publisher, pricing Pricing) *CartService {
	return &CartService{
		store:     store,
		publisher: publisher,
		pricing:   pricing,
		logger:    util.GetLogger(),
	}
}

// GetMyCart resolves the caller's cart: the user cart when signed in,
// otherwise the session cart. Returns (nil, nil) when none exists yet.
func (cs *CartService) GetMyCart(ctx context.Context, userID, sessionCartID string) (*models.Cart, error) {
	if userID != "" {
		return cs.store.GetCartByUserID(ctx, userID)
	}
	if sessionCartID == "" {
		return nil, nil
	}
	return cs.store.GetCartBySessionID(ctx, sessionCartID)
}

// AddToCart adds qty of a product to the caller's cart, creating the cart
// on first use. The item price is snapshotted from the product at add time.
func (cs *CartService) AddToCart(ctx context.Context, userID, sessionCartID, productID string, qty int) ActionResult {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	if qty < 1 {
		return failure("Quantity must be at least one")
	}

	product, err := cs.store.GetProductByID(ctx, productID)
	if err != nil {
		return failure(formatError(err))
	}

	cart, err := cs.GetMyCart(ctx, userID, sessionCartID)
	if err != nil {
		cs.logger.Error("Failed to load cart", zap.Error(err))
		return failure(formatError(err))
	}

	if cart == nil {
		cart = &models.Cart{
			ID:            uuid.New().String(),
			UserID:        userID,
			SessionCartID: sessionCartID,
			Items:         models.CartItems{},
		}
		cart.Items = addItem(cart.Items, product, qty)
		cs.applyTotals(cart)

		if err := cs.store.CreateCart(ctx, cart); err != nil {
			cs.logger.Error("Failed to create cart", zap.Error(err))
			return failure(formatError(err))
		}
		return success(fmt.Sprintf("%s added to cart", product.Name))
	}

	cart.Items = addItem(cart.Items, product, qty)
	cs.applyTotals(cart)

	if err := cs.store.UpdateCartContents(ctx, cart); err != nil {
		cs.logger.Error("Failed to update cart", zap.Error(err))
		return failure(formatError(err))
	}
	return success(fmt.Sprintf("%s added to cart", product.Name))
}

// RemoveFromCart decrements one unit of a product, dropping the line when
// the quantity reaches zero.
func (cs *CartService) RemoveFromCart(ctx context.Context, userID, sessionCartID, productID string) ActionResult {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveFromCart")
	defer span.End()

	cart, err := cs.GetMyCart(ctx, userID, sessionCartID)
	if err != nil {
		return failure(formatError(err))
	}
	if cart == nil {
		return failure("Cart not found")
	}

	items := make(models.CartItems, 0, len(cart.Items))
	found := false
	for _, item := range cart.Items {
		if item.ProductID == productID {
			found = true
			item.Qty--
			if item.Qty <= 0 {
				continue
			}
		}
		items = append(items, item)
	}
	if !found {
		return failure("Item not in cart")
	}

	cart.Items = items
	cs.applyTotals(cart)

	if err := cs.store.UpdateCartContents(ctx, cart); err != nil {
		cs.logger.Error("Failed to update cart", zap.Error(err))
		return failure(formatError(err))
	}
	return success("Item removed from cart")
}

// MigrateSessionCart runs the sign-in cart migration hook. It is
// best-effort: any failure is logged and absorbed so sign-in always
// proceeds. This is the one place an error is deliberately swallowed.
func (cs *CartService) MigrateSessionCart(ctx context.Context, userID, sessionCartID string) {
	ctx, span := util.StartSpan(ctx, "CartService.MigrateSessionCart")
	defer span.End()

	cart, err := cs.store.MigrateCartTx(ctx, userID, sessionCartID)
	if err != nil {
		util.CartMigrationsFailedTotal.Inc()
		cs.logger.Error("Failed to migrate cart",
			zap.String("user_id", userID),
			zap.String("session_cart_id", sessionCartID),
			zap.Error(err))
		return
	}
	if cart == nil {
		// No session cart, nothing to migrate.
		return
	}

	util.CartMigrationsTotal.Inc()
	cs.logger.Info("Session cart migrated",
		zap.String("cart_id", cart.ID),
		zap.String("user_id", userID))

	if cs.publisher != nil {
		event := &models.CartMigratedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCartMigrated,
				Timestamp: time.Now(),
			},
			CartID:        cart.ID,
			UserID:        userID,
			SessionCartID: sessionCartID,
		}
		if err := cs.publisher.PublishCartMigrated(ctx, event); err != nil {
			cs.logger.Error("Failed to publish CartMigrated event", zap.Error(err))
		}
	}
}

// addItem merges qty of product into items, preserving item order.
func addItem(items models.CartItems, product *models.Product, qty int) models.CartItems {
	for i := range items {
		if items[i].ProductID == product.ID {
			items[i].Qty += qty
			return items
		}
	}
	return append(items, models.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Slug:      product.Slug,
		Image:     product.Image,
		Qty:       qty,
		Price:     product.Price,
	})
}

// applyTotals recomputes all four aggregate price fields from the items.
func (cs *CartService) applyTotals(cart *models.Cart) {
	itemsPrice := decimal.Zero
	for _, item := range cart.Items {
		itemsPrice = itemsPrice.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	itemsPrice = itemsPrice.Round(2)

	shippingPrice := cs.pricing.FlatShippingPrice
	if len(cart.Items) == 0 || itemsPrice.GreaterThan(cs.pricing.FreeShippingMinPrice) {
		shippingPrice = decimal.Zero
	}

	taxPrice := itemsPrice.Mul(cs.pricing.TaxRate).Round(2)

	cart.ItemsPrice = itemsPrice
	cart.ShippingPrice = shippingPrice
	cart.TaxPrice = taxPrice
	cart.TotalPrice = itemsPrice.Add(shippingPrice).Add(taxPrice).Round(2)
}
