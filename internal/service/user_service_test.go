package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/models"
)

type fakeUserStore struct {
	addresses map[string]models.ShippingAddress
	methods   map[string]string
	roles     map[string]string
	writes    int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		addresses: make(map[string]models.ShippingAddress),
		methods:   make(map[string]string),
		roles:     make(map[string]string),
	}
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (f *fakeUserStore) GetUsers(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserStore) UpdateUserName(ctx context.Context, userID, name string) error {
	f.writes++
	return nil
}

func (f *fakeUserStore) UpdateUserAddress(ctx context.Context, userID string, address models.ShippingAddress) error {
	f.writes++
	f.addresses[userID] = address
	return nil
}

func (f *fakeUserStore) UpdateUserPaymentMethod(ctx context.Context, userID, paymentMethod string) error {
	f.writes++
	f.methods[userID] = paymentMethod
	return nil
}

func (f *fakeUserStore) UpdateUserRole(ctx context.Context, userID, name, role string) error {
	f.writes++
	f.roles[userID] = role
	return nil
}

func (f *fakeUserStore) DeleteUser(ctx context.Context, id string) error {
	f.writes++
	return nil
}

func (f *fakeUserStore) GetMonthlySales(ctx context.Context) ([]models.MonthlySales, error) {
	return nil, nil
}

func TestUpdateAddressRequiresAllFields(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewUserService(fs)
	ctx := context.Background()

	res := svc.UpdateAddress(ctx, "u1", models.ShippingAddress{FullName: "Jane Doe", City: "Springfield"})
	assert.False(t, res.Success)
	assert.Equal(t, 0, fs.writes)

	res = svc.UpdateAddress(ctx, "u1", models.ShippingAddress{
		FullName: "Jane Doe", StreetAddress: "1 Main St",
		City: "Springfield", PostalCode: "12345", Country: "US",
	})
	assert.True(t, res.Success)
	assert.Equal(t, "1 Main St", fs.addresses["u1"].StreetAddress)
}

func TestUpdatePaymentMethodValidatesChoice(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewUserService(fs)
	ctx := context.Background()

	res := svc.UpdatePaymentMethod(ctx, "u1", "Bitcoin")
	assert.False(t, res.Success)
	assert.Equal(t, "Unsupported payment method", res.Message)
	assert.Equal(t, 0, fs.writes)

	assert.True(t, svc.UpdatePaymentMethod(ctx, "u1", models.PaymentMethodPayPal).Success)
	assert.True(t, svc.UpdatePaymentMethod(ctx, "u1", models.PaymentMethodCOD).Success)
	assert.Equal(t, models.PaymentMethodCOD, fs.methods["u1"])
}

func TestUpdateProfileRejectsEmptyName(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewUserService(fs)

	res := svc.UpdateProfile(context.Background(), "u1", "")
	assert.False(t, res.Success)
	assert.Equal(t, 0, fs.writes)
}

func TestUpdateUserValidatesRole(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewUserService(fs)
	ctx := context.Background()

	res := svc.UpdateUser(ctx, "u1", "Jane", "superuser")
	assert.False(t, res.Success)
	assert.Equal(t, 0, fs.writes)

	assert.True(t, svc.UpdateUser(ctx, "u1", "Jane", models.RoleAdmin).Success)
	assert.Equal(t, models.RoleAdmin, fs.roles["u1"])
}
