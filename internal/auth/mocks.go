package auth

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

type UserManagerMock struct {
	mock.Mock
}

var _ UserManager = (*UserManagerMock)(nil)

func (m *UserManagerMock) CreateTenantAdminUser(ctx context.Context, sqlExec db.SQLExecuter, t *tenant.Tenant, data AdminUserData) (*User, string, error) {
	args := m.Called(ctx, sqlExec, t, data)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*User), args.String(1), args.Error(2)
}

func (m *UserManagerMock) GetUserByEmail(ctx context.Context, sqlExec db.SQLExecuter, email string) (*User, error) {
	args := m.Called(ctx, sqlExec, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

type PasswordEncrypterMock struct {
	mock.Mock
}

var _ PasswordEncrypter = (*PasswordEncrypterMock)(nil)

func (m *PasswordEncrypterMock) Encrypt(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

func (m *PasswordEncrypterMock) ComparePassword(ctx context.Context, encryptedPassword, password string) (bool, error) {
	args := m.Called(ctx, encryptedPassword, password)
	return args.Bool(0), args.Error(1)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

func NewUserManagerMock(t testInterface) *UserManagerMock {
	mock := &UserManagerMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

func NewPasswordEncrypterMock(t testInterface) *PasswordEncrypterMock {
	mock := &PasswordEncrypterMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
