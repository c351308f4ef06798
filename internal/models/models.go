package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Payment methods
const (
	PaymentMethodPayPal = "PayPal"
	PaymentMethodCOD    = "CashOnDelivery"
)

// User represents a registered customer or admin
type User struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Email         string          `db:"email" json:"email"`
	PasswordHash  string          `db:"password_hash" json:"-"`
	Role          string          `db:"role" json:"role"`
	Address       ShippingAddress `db:"address" json:"address"`
	PaymentMethod string          `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Identity is the authenticated caller, extracted once at the HTTP layer
// and passed explicitly into every workflow.
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Product represents a product in the catalog
type Product struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Slug        string          `db:"slug" json:"slug"`
	Description string          `db:"description" json:"description"`
	Image       string          `db:"image" json:"image"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ShippingAddress is a snapshot of where an order ships to. It is stored
// as a jsonb column; the zero value means the user has not set one yet.
type ShippingAddress struct {
	FullName      string `json:"full_name"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

// Empty reports whether the address has not been set.
func (a ShippingAddress) Empty() bool {
	return a == ShippingAddress{}
}

func (a ShippingAddress) Value() (driver.Value, error) {
	if a.Empty() {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src interface{}) error {
	*a = ShippingAddress{}
	if src == nil {
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into ShippingAddress", src)
	}
	return json.Unmarshal(b, a)
}

// CartItem is one line of a cart, with the price snapshotted at the time
// the item was added.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Image     string          `json:"image"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// CartItems is stored embedded as a jsonb column rather than normalized.
type CartItems []CartItem

func (ci CartItems) Value() (driver.Value, error) {
	if ci == nil {
		ci = CartItems{}
	}
	return json.Marshal(ci)
}

func (ci *CartItems) Scan(src interface{}) error {
	*ci = CartItems{}
	if src == nil {
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into CartItems", src)
	}
	return json.Unmarshal(b, ci)
}

// Cart belongs either to a session (anonymous) or to a user after sign-in.
// It is never deleted on checkout, only cleared and reused. Version is
// bumped on every write and guards checkout against concurrent mutation.
type Cart struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user_id,omitempty"`
	SessionCartID string          `db:"session_cart_id" json:"session_cart_id"`
	Items         CartItems       `db:"items" json:"items"`
	ItemsPrice    decimal.Decimal `db:"items_price" json:"items_price"`
	ShippingPrice decimal.Decimal `db:"shipping_price" json:"shipping_price"`
	TaxPrice      decimal.Decimal `db:"tax_price" json:"tax_price"`
	TotalPrice    decimal.Decimal `db:"total_price" json:"total_price"`
	Version       int64           `db:"version" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentResult holds the external provider's capture details for audit
// and reconciliation. Stored as a jsonb column; zero value means unset.
type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	EmailAddress string `json:"email_address"`
	PricePaid    string `json:"price_paid"`
}

// Empty reports whether no payment result has been recorded.
func (pr PaymentResult) Empty() bool {
	return pr == PaymentResult{}
}

func (pr PaymentResult) Value() (driver.Value, error) {
	if pr.Empty() {
		return nil, nil
	}
	return json.Marshal(pr)
}

func (pr *PaymentResult) Scan(src interface{}) error {
	*pr = PaymentResult{}
	if src == nil {
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into PaymentResult", src)
	}
	return json.Unmarshal(b, pr)
}

// Order is an immutable snapshot of a cart at checkout time. Prices and
// address are frozen regardless of later product or user changes; only
// the paid/delivered flags transition afterwards, each exactly once.
type Order struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	ShippingAddress ShippingAddress `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	ItemsPrice      decimal.Decimal `db:"items_price" json:"items_price"`
	ShippingPrice   decimal.Decimal `db:"shipping_price" json:"shipping_price"`
	TaxPrice        decimal.Decimal `db:"tax_price" json:"tax_price"`
	TotalPrice      decimal.Decimal `db:"total_price" json:"total_price"`
	IsPaid          bool            `db:"is_paid" json:"is_paid"`
	PaidAt          *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	IsDelivered     bool            `db:"is_delivered" json:"is_delivered"`
	DeliveredAt     *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	PaymentResult   PaymentResult   `db:"payment_result" json:"payment_result,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// OrderItem is one row per distinct product in an order, created atomically
// with its order and never mutated afterwards.
type OrderItem struct {
	OrderID   string          `db:"order_id" json:"order_id"`
	LineNo    int             `db:"line_no" json:"-"`
	ProductID string          `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Slug      string          `db:"slug" json:"slug"`
	Image     string          `db:"image" json:"image"`
	Qty       int             `db:"qty" json:"qty"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// MonthlySales is one row of the admin sales summary
type MonthlySales struct {
	Month      string          `db:"month" json:"month"`
	TotalSales decimal.Decimal `db:"total_sales" json:"total_sales"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
