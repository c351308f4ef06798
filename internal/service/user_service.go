package service

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/util"
)

// UserStore is the slice of the persistence layer the user service needs.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateUserName(ctx context.Context, userID, name string) error
	UpdateUserAddress(ctx context.Context, userID string, address models.ShippingAddress) error
	UpdateUserPaymentMethod(ctx context.Context, userID, paymentMethod string) error
	UpdateUserRole(ctx context.Context, userID, name, role string) error
	DeleteUser(ctx context.Context, id string) error
	GetMonthlySales(ctx context.Context) ([]models.MonthlySales, error)
}

// UserService handles profile updates (the checkout prerequisites) and
// admin user management.
type UserService struct {
	store  UserStore
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(store UserStore) *UserService {
	return &UserService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// GetUser returns one user by ID
func (us *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return us.store.GetUserByID(ctx, userID)
}

// UpdateProfile updates the caller's display name
func (us *UserService) UpdateProfile(ctx context.Context, userID, name string) ActionResult {
	if name == "" {
		return failure("Name must not be empty")
	}
	if err := us.store.UpdateUserName(ctx, userID, name); err != nil {
		us.logger.Error("Failed to update profile",
			zap.String("user_id", userID),
			zap.Error(err))
		return failure(formatError(err))
	}
	return success("User updated successfully")
}

// UpdateAddress stores the caller's shipping address, a checkout
// prerequisite.
func (us *UserService) UpdateAddress(ctx context.Context, userID string, address models.ShippingAddress) ActionResult {
	if address.FullName == "" || address.StreetAddress == "" || address.City == "" ||
		address.PostalCode == "" || address.Country == "" {
		return failure("All address fields are required")
	}
	if err := us.store.UpdateUserAddress(ctx, userID, address); err != nil {
		us.logger.Error("Failed to update address",
			zap.String("user_id", userID),
			zap.Error(err))
		return failure(formatError(err))
	}
	return success("User updated successfully")
}

// UpdatePaymentMethod stores the caller's payment method, a checkout
// prerequisite.
func (us *UserService) UpdatePaymentMethod(ctx context.Context, userID, paymentMethod string) ActionResult {
	switch paymentMethod {
	case models.PaymentMethodPayPal, models.PaymentMethodCOD:
	default:
		return failure("Unsupported payment method")
	}
	if err := us.store.UpdateUserPaymentMethod(ctx, userID, paymentMethod); err != nil {
		us.logger.Error("Failed to update payment method",
			zap.String("user_id", userID),
			zap.Error(err))
		return failure(formatError(err))
	}
	return success("User updated successfully")
}

// GetAllUsers returns every user, admin only
func (us *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return us.store.GetUsers(ctx)
}

// UpdateUser updates a user's name and role, admin only
func (us *UserService) UpdateUser(ctx context.Context, userID, name, role string) ActionResult {
	if role != models.RoleUser && role != models.RoleAdmin {
		return failure("Unknown role")
	}
	if err := us.store.UpdateUserRole(ctx, userID, name, role); err != nil {
		us.logger.Error("Failed to update user",
			zap.String("user_id", userID),
			zap.Error(err))
		return failure(formatError(err))
	}
	return success("User updated successfully")
}

// DeleteUser removes a user, admin only
func (us *UserService) DeleteUser(ctx context.Context, userID string) ActionResult {
	if err := us.store.DeleteUser(ctx, userID); err != nil {
		us.logger.Error("Failed to delete user",
			zap.String("user_id", userID),
			zap.Error(err))
		return failure(formatError(err))
	}
	return success("User deleted successfully")
}

// GetSalesSummary returns the monthly sales aggregates, admin only
func (us *UserService) GetSalesSummary(ctx context.Context) ([]models.MonthlySales, error) {
	return us.store.GetMonthlySales(ctx)
}
