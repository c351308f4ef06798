package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// CreateOrderTx snapshots a cart into an order inside one transaction:
// insert the order, insert one order item per cart item (in cart order,
// prices copied verbatim), then clear the source cart. The cart clear is
// version-guarded; a concurrent checkout of the same cart rolls the whole
// transaction back with ErrCartConflict, so at most one order wins.
func (s *Store) CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem, cart *models.Cart) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, user_id, shipping_address, payment_method,
			items_price, shipping_price, tax_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if err := tx.GetContext(ctx, &order.CreatedAt, query,
		order.ID, order.UserID, order.ShippingAddress, order.PaymentMethod,
		order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		items[i].LineNo = i
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, line_no, product_id, name, slug, image, qty, price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			items[i].OrderID, items[i].LineNo, items[i].ProductID, items[i].Name,
			items[i].Slug, items[i].Image, items[i].Qty, items[i].Price); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE carts
		SET items = $1, items_price = 0, shipping_price = 0, tax_price = 0, total_price = 0,
		    version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3`,
		models.CartItems{}, cart.ID, cart.Version)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartConflict
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order, in the order
// they held in the cart at checkout
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY line_no", orderID)
	return items, err
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrders retrieves all orders, newest first
func (s *Store) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// DeleteOrder deletes an order and its items
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateOrderPaymentResult stores the provider reference created for an
// unpaid order, binding the external payment to it before capture.
func (s *Store) UpdateOrderPaymentResult(ctx context.Context, orderID string, result models.PaymentResult) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_result = $1 WHERE id = $2 AND is_paid = FALSE",
		result, orderID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkOrderPaidTx transitions an order to paid exactly once. The row is
// locked for the duration of the transaction; an already-paid order fails
// with ErrAlreadyPaid so a re-approval can never double-process.
func (s *Store) MarkOrderPaidTx(ctx context.Context, orderID string, result models.PaymentResult) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET is_paid = TRUE, paid_at = $1, payment_result = $2 WHERE id = $3`,
		now, result, orderID); err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.IsPaid = true
	order.PaidAt = &now
	order.PaymentResult = result
	return &order, nil
}

// MarkOrderDeliveredTx transitions a paid order to delivered exactly once.
func (s *Store) MarkOrderDeliveredTx(ctx context.Context, orderID string) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if !order.IsPaid {
		return nil, ErrNotPaid
	}
	if order.IsDelivered {
		return nil, ErrAlreadyDelivered
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET is_delivered = TRUE, delivered_at = $1 WHERE id = $2",
		now, orderID); err != nil {
		return nil, fmt.Errorf("failed to mark order delivered: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.IsDelivered = true
	order.DeliveredAt = &now
	return &order, nil
}

// AddMonthlySales accumulates a paid order's total into the sales summary
func (s *Store) AddMonthlySales(ctx context.Context, month string, amount decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales_summary (month, total_sales) VALUES ($1, $2)
		ON CONFLICT (month) DO UPDATE SET total_sales = sales_summary.total_sales + EXCLUDED.total_sales`,
		month, amount)
	return err
}

// GetMonthlySales retrieves the sales summary, newest month first
func (s *Store) GetMonthlySales(ctx context.Context) ([]models.MonthlySales, error) {
	var rows []models.MonthlySales
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM sales_summary ORDER BY month DESC")
	return rows, err
}
