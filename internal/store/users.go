package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"storefront/internal/models"
)

// CreateUser inserts a new user. A unique-violation on the email column
// surfaces as ErrDuplicateEmail.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := s.db.GetContext(ctx, user, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicateEmail)
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers retrieves all users, newest first
func (s *Store) GetUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY created_at DESC")
	return users, err
}

// UpdateUserName updates the display name
func (s *Store) UpdateUserName(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = $1, updated_at = NOW() WHERE id = $2", name, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateUserAddress stores the shipping address snapshot
func (s *Store) UpdateUserAddress(ctx context.Context, userID string, address models.ShippingAddress) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET address = $1, updated_at = NOW() WHERE id = $2", address, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateUserPaymentMethod stores the preferred payment method
func (s *Store) UpdateUserPaymentMethod(ctx context.Context, userID, paymentMethod string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET payment_method = $1, updated_at = NOW() WHERE id = $2", paymentMethod, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateUserRole updates name and role, used by the admin user editor
func (s *Store) UpdateUserRole(ctx context.Context, userID, name, role string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = $1, role = $2, updated_at = NOW() WHERE id = $3", name, role, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteUser deletes a user by ID
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
