package notification

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tenantcrm/crm-platform-backend/internal/auth"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

type WelcomeNotifierMock struct {
	mock.Mock
}

var _ WelcomeNotifier = (*WelcomeNotifierMock)(nil)

func (m *WelcomeNotifierMock) SendWelcomeEmail(ctx context.Context, user *auth.User, t *tenant.Tenant, password string) error {
	return m.Called(ctx, user, t, password).Error(0)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

func NewWelcomeNotifierMock(t testInterface) *WelcomeNotifierMock {
	mock := &WelcomeNotifierMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
