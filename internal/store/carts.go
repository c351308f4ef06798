package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"
)

// GetCartBySessionID retrieves the anonymous cart for a session.
// Returns (nil, nil) when no cart exists.
func (s *Store) GetCartBySessionID(ctx context.Context, sessionCartID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart,
		"SELECT * FROM carts WHERE session_cart_id = $1", sessionCartID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCartByUserID retrieves the cart owned by a user.
// Returns (nil, nil) when no cart exists.
func (s *Store) GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart,
		"SELECT * FROM carts WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateCart inserts a new cart
func (s *Store) CreateCart(ctx context.Context, cart *models.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, session_cart_id, items, items_price, shipping_price, tax_price, total_price, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		RETURNING version, created_at, updated_at`

	return s.db.GetContext(ctx, cart, query,
		cart.ID, cart.UserID, cart.SessionCartID, cart.Items,
		cart.ItemsPrice, cart.ShippingPrice, cart.TaxPrice, cart.TotalPrice)
}

// UpdateCartContents replaces the cart's items and totals. The write is
// guarded by the cart version; a concurrent writer makes it fail with
// ErrCartConflict instead of silently overwriting.
func (s *Store) UpdateCartContents(ctx context.Context, cart *models.Cart) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE carts
		SET items = $1, items_price = $2, shipping_price = $3, tax_price = $4, total_price = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7`,
		cart.Items, cart.ItemsPrice, cart.ShippingPrice, cart.TaxPrice, cart.TotalPrice,
		cart.ID, cart.Version)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartConflict
	}

	cart.Version++
	return nil
}

// MigrateCartTx re-owns an anonymous session cart after sign-in. In one
// transaction: find the session cart (no-op when absent), delete any cart
// already owned by the user, then assign the session cart to the user.
// The sessionCartId is kept as a durable correlation key.
func (s *Store) MigrateCartTx(ctx context.Context, userID, sessionCartID string) (*models.Cart, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var cart models.Cart
	err = tx.GetContext(ctx, &cart,
		"SELECT * FROM carts WHERE session_cart_id = $1", sessionCartID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM carts WHERE user_id = $1 AND id <> $2", userID, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to delete existing user cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE carts SET user_id = $1, updated_at = NOW() WHERE id = $2", userID, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to re-own session cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	cart.UserID = userID
	return &cart, nil
}
