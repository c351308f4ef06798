package models

import "time"

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderPaid      = "ORDER_PAID"
	EventTypeOrderDelivered = "ORDER_DELIVERED"
	EventTypeCartMigrated   = "CART_MIGRATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when checkout completes
type OrderCreatedEvent struct {
	BaseEvent
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	PaymentMethod string          `json:"payment_method"`
	TotalPrice    string          `json:"total_price"`
	Items         []OrderItemData `json:"items"`
}

// OrderPaidEvent published when an order transitions to paid, either via
// the external capture path or manual settlement
type OrderPaidEvent struct {
	BaseEvent
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	TotalPrice string    `json:"total_price"`
	PaidAt     time.Time `json:"paid_at"`
	// ProviderTxID is empty for cash-on-delivery settlements
	ProviderTxID string `json:"provider_tx_id,omitempty"`
}

// OrderDeliveredEvent published when delivery is confirmed
type OrderDeliveredEvent struct {
	BaseEvent
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// CartMigratedEvent published after a session cart is re-owned on sign-in
type CartMigratedEvent struct {
	BaseEvent
	CartID        string `json:"cart_id"`
	UserID        string `json:"user_id"`
	SessionCartID string `json:"session_cart_id"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Price     string `json:"price"`
}
