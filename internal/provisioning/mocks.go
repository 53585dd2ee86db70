package provisioning

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type TenantProvisionerMock struct {
	mock.Mock
}

var _ TenantProvisioner = (*TenantProvisionerMock)(nil)

func (m *TenantProvisionerMock) CreateTenantWithSetup(ctx context.Context, setup TenantSetup) (*Result, error) {
	args := m.Called(ctx, setup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *TenantProvisionerMock) SeedPermissions(ctx context.Context, tenantID int64) error {
	return m.Called(ctx, tenantID).Error(0)
}

type NameGeneratorMock struct {
	mock.Mock
}

var _ NameGenerator = (*NameGeneratorMock)(nil)

func (m *NameGeneratorMock) GenerateSchemaName(ctx context.Context, companyName string) (string, error) {
	args := m.Called(ctx, companyName)
	return args.String(0), args.Error(1)
}

func (m *NameGeneratorMock) GenerateDomainName(ctx context.Context, companyName, baseDomain string) (string, error) {
	args := m.Called(ctx, companyName, baseDomain)
	return args.String(0), args.Error(1)
}

func (m *NameGeneratorMock) Release(schemaName, domain string) {
	m.Called(schemaName, domain)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

func NewTenantProvisionerMock(t testInterface) *TenantProvisionerMock {
	mock := &TenantProvisionerMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

func NewNameGeneratorMock(t testInterface) *NameGeneratorMock {
	mock := &NameGeneratorMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
