package permissions

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

type TenantPermissionsSeederMock struct {
	mock.Mock
}

var _ TenantPermissionsSeeder = (*TenantPermissionsSeederMock)(nil)

func (m *TenantPermissionsSeederMock) SetupTenantPermissions(ctx context.Context, t *tenant.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

func NewTenantPermissionsSeederMock(t testInterface) *TenantPermissionsSeederMock {
	mock := &TenantPermissionsSeederMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
