package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

// noNameSentinel marks accounts created without a display name; they get
// the local part of their email on first sign-in.
const noNameSentinel = "NO_NAME"

// UserStore is the slice of the persistence layer the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserName(ctx context.Context, userID, name string) error
}

// CartMigrator re-owns a session cart after a sign-in or sign-up event.
type CartMigrator interface {
	MigrateSessionCart(ctx context.Context, userID, sessionCartID string)
}

// Service issues session tokens and runs the sign-in side effects.
type Service struct {
	store    UserStore
	migrator CartMigrator
	secret   string
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewService creates a new auth service
func NewService(store UserStore, migrator CartMigrator, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		migrator: migrator,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   util.GetLogger(),
	}
}

// Session is the outcome of a successful sign-in or sign-up
type Session struct {
	Token    string          `json:"token"`
	Identity models.Identity `json:"user"`
}

// SignUp registers a new user and signs them in. A present sessionCartID
// triggers the cart migration hook, best-effort.
func (s *Service) SignUp(ctx context.Context, name, email, password, sessionCartID string) (*Session, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if name == "" {
		name = noNameSentinel
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.establishSession(ctx, user, sessionCartID)
}

// SignIn authenticates credentials and issues a session token. A present
// sessionCartID triggers the cart migration hook, best-effort.
func (s *Service) SignIn(ctx context.Context, email, password, sessionCartID string) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	return s.establishSession(ctx, user, sessionCartID)
}

// establishSession shapes the token claims and runs the sign-in side
// effects shared by both triggers.
func (s *Service) establishSession(ctx context.Context, user *models.User, sessionCartID string) (*Session, error) {
	if user.Name == noNameSentinel {
		user.Name = strings.SplitN(user.Email, "@", 2)[0]
		if err := s.store.UpdateUserName(ctx, user.ID, user.Name); err != nil {
			// Claim shaping still uses the derived name; the rename retries
			// on the next sign-in.
			s.logger.Warn("Failed to persist derived user name",
				zap.String("user_id", user.ID),
				zap.Error(err))
		}
	}

	if sessionCartID != "" && s.migrator != nil {
		s.migrator.MigrateSessionCart(ctx, user.ID, sessionCartID)
	}

	identity := models.Identity{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
	}

	token, err := IssueToken(identity, s.secret, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, Identity: identity}, nil
}
