package tenant

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tenantcrm/crm-platform-backend/db"
)

type TenantManagerMock struct {
	mock.Mock
}

func (m *TenantManagerMock) CreateTenant(ctx context.Context, sqlExec db.SQLExecuter, insert *TenantInsert) (*Tenant, error) {
	args := m.Called(ctx, sqlExec, insert)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantManagerMock) GetTenantByID(ctx context.Context, id int64) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantManagerMock) GetTenantBySchemaName(ctx context.Context, schemaName string) (*Tenant, error) {
	args := m.Called(ctx, schemaName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantManagerMock) GetAllTenants(ctx context.Context) ([]Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Tenant), args.Error(1)
}

func (m *TenantManagerMock) SchemaNameExists(ctx context.Context, schemaName string) (bool, error) {
	args := m.Called(ctx, schemaName)
	return args.Bool(0), args.Error(1)
}

func (m *TenantManagerMock) DomainExists(ctx context.Context, domain string) (bool, error) {
	args := m.Called(ctx, domain)
	return args.Bool(0), args.Error(1)
}

func (m *TenantManagerMock) CreateTenantSchema(ctx context.Context, sqlExec db.SQLExecuter, schemaName string) error {
	args := m.Called(ctx, sqlExec, schemaName)
	return args.Error(0)
}

func (m *TenantManagerMock) DropTenantSchema(ctx context.Context, sqlExec db.SQLExecuter, schemaName string) error {
	args := m.Called(ctx, sqlExec, schemaName)
	return args.Error(0)
}

func (m *TenantManagerMock) CreateDomain(ctx context.Context, tenantID int64, domain string, isPrimary bool) (*Domain, error) {
	args := m.Called(ctx, tenantID, domain, isPrimary)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Domain), args.Error(1)
}

func (m *TenantManagerMock) CreateDomainTx(ctx context.Context, sqlExec db.SQLExecuter, tenantID int64, domain string, isPrimary bool) (*Domain, error) {
	args := m.Called(ctx, sqlExec, tenantID, domain, isPrimary)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Domain), args.Error(1)
}

func (m *TenantManagerMock) GetPrimaryDomain(ctx context.Context, tenantID int64) (*Domain, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Domain), args.Error(1)
}

func (m *TenantManagerMock) GetDomainsForTenant(ctx context.Context, tenantID int64) ([]Domain, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Domain), args.Error(1)
}

func (m *TenantManagerMock) ResolveTenantByDomain(ctx context.Context, domain string) (*Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantManagerMock) DeleteTenant(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ ManagerInterface = (*TenantManagerMock)(nil)

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

func NewTenantManagerMock(t testInterface) *TenantManagerMock {
	mock := &TenantManagerMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
