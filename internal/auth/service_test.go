package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/store"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	renames map[string]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]*models.User),
		renames: make(map[string]string),
	}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdateUserName(ctx context.Context, userID, name string) error {
	f.renames[userID] = name
	return nil
}

type fakeMigrator struct {
	calls [][2]string
}

func (f *fakeMigrator) MigrateSessionCart(ctx context.Context, userID, sessionCartID string) {
	f.calls = append(f.calls, [2]string{userID, sessionCartID})
}

func TestSignUpAndSignIn(t *testing.T) {
	fs := newFakeUserStore()
	mig := &fakeMigrator{}
	svc := NewService(fs, mig, "secret", time.Hour)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, "Jane", "Jane@Example.com ", "hunter22", "")
	require.NoError(t, err)
	assert.Equal(t, "Jane", session.Identity.Name)
	assert.Equal(t, models.RoleUser, session.Identity.Role)
	require.Contains(t, fs.byEmail, "jane@example.com", "emails are normalized")

	parsed, err := ParseToken(session.Token, "secret")
	require.NoError(t, err)
	assert.Equal(t, session.Identity, parsed)

	again, err := svc.SignIn(ctx, "jane@example.com", "hunter22", "")
	require.NoError(t, err)
	assert.Equal(t, session.Identity.UserID, again.Identity.UserID)
}

func TestSignInWrongPassword(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs, nil, "secret", time.Hour)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "Jane", "jane@example.com", "hunter22", "")
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "jane@example.com", "wrong", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInUnknownUser(t *testing.T) {
	svc := NewService(newFakeUserStore(), nil, "secret", time.Hour)

	_, err := svc.SignIn(context.Background(), "nobody@example.com", "hunter22", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown user and wrong password are indistinguishable")
}

func TestSignUpWithoutNameDerivesFromEmail(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs, nil, "secret", time.Hour)

	session, err := svc.SignUp(context.Background(), "", "jane.doe@example.com", "hunter22", "")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", session.Identity.Name)
	assert.Equal(t, "jane.doe", fs.renames[session.Identity.UserID], "derived name is persisted")
}

func TestSignInTriggersCartMigration(t *testing.T) {
	fs := newFakeUserStore()
	mig := &fakeMigrator{}
	svc := NewService(fs, mig, "secret", time.Hour)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, "Jane", "jane@example.com", "hunter22", "session-1")
	require.NoError(t, err)
	require.Len(t, mig.calls, 1)
	assert.Equal(t, [2]string{session.Identity.UserID, "session-1"}, mig.calls[0])

	_, err = svc.SignIn(ctx, "jane@example.com", "hunter22", "session-2")
	require.NoError(t, err)
	require.Len(t, mig.calls, 2)
	assert.Equal(t, "session-2", mig.calls[1][1])
}

func TestSignInWithoutSessionCartSkipsMigration(t *testing.T) {
	fs := newFakeUserStore()
	mig := &fakeMigrator{}
	svc := NewService(fs, mig, "secret", time.Hour)

	_, err := svc.SignUp(context.Background(), "Jane", "jane@example.com", "hunter22", "")
	require.NoError(t, err)
	assert.Empty(t, mig.calls)
}
