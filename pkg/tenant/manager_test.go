package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/dbtest"
	"github.com/tenantcrm/crm-platform-backend/db/sqlmockdb"
)

func openManager(t *testing.T) (*Manager, db.DBConnectionPool) {
	t.Helper()

	dbt := dbtest.Open(t)
	t.Cleanup(dbt.Close)
	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { dbConnectionPool.Close() })

	return NewManager(WithDatabase(dbConnectionPool)), dbConnectionPool
}

func Test_Manager_CreateTenant(t *testing.T) {
	m, dbConnectionPool := openManager(t)
	ctx := context.Background()

	t.Run("returns error when tenant name is empty", func(t *testing.T) {
		tnt, err := m.CreateTenant(ctx, dbConnectionPool, &TenantInsert{SchemaName: "acme", ContactEmail: "a@acme.com"})
		assert.ErrorIs(t, err, ErrEmptyTenantName)
		assert.Nil(t, tnt)
	})

	t.Run("inserts a new tenant successfully", func(t *testing.T) {
		tnt, err := m.CreateTenant(ctx, dbConnectionPool, &TenantInsert{Name: "Acme & Co", SchemaName: "acme_co", ContactEmail: "a@acme.com"})
		require.NoError(t, err)
		assert.NotZero(t, tnt.ID)
		assert.Equal(t, "Acme & Co", tnt.Name)
		assert.Equal(t, "acme_co", tnt.SchemaName)
		assert.Equal(t, TrialSubscriptionStatus, tnt.SubscriptionStatus)
		assert.True(t, tnt.IsActive)

		exists, err := m.SchemaNameExists(ctx, "acme_co")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("returns error when the schema name is duplicated", func(t *testing.T) {
		_, err := m.CreateTenant(ctx, dbConnectionPool, &TenantInsert{Name: "Acme Again", SchemaName: "acme_co", ContactEmail: "b@acme.com"})
		assert.ErrorIs(t, err, ErrDuplicatedSchemaName)
	})

	t.Run("schema name is immutable", func(t *testing.T) {
		_, err := dbConnectionPool.ExecContext(ctx, "UPDATE tenants SET schema_name = 'renamed' WHERE schema_name = 'acme_co'")
		require.ErrorContains(t, err, "tenants.schema_name is immutable")
	})

	DeleteAllTenantsFixture(t, ctx, dbConnectionPool)
}

func Test_Manager_SchemaNameExists_unregisteredSchema(t *testing.T) {
	m, dbConnectionPool := openManager(t)
	ctx := context.Background()

	exists, err := m.SchemaNameExists(ctx, "public")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = m.SchemaNameExists(ctx, "nobody_here")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = dbConnectionPool.ExecContext(ctx, "CREATE SCHEMA stray")
	require.NoError(t, err)
	exists, err = m.SchemaNameExists(ctx, "stray")
	require.NoError(t, err)
	assert.True(t, exists)
}

func Test_Manager_SchemaNameExists_roleName(t *testing.T) {
	m, dbConnectionPool := openManager(t)
	ctx := context.Background()

	var role string
	err := dbConnectionPool.GetContext(ctx, &role, "SELECT current_user")
	require.NoError(t, err)

	exists, err := m.SchemaNameExists(ctx, role)
	require.NoError(t, err)
	assert.True(t, exists)
}

func Test_Manager_CreateDomain(t *testing.T) {
	m, dbConnectionPool := openManager(t)
	ctx := context.Background()

	acme := CreateTenantFixture(t, ctx, dbConnectionPool, "Acme", "acme", "acme.crm.example.com")
	globex := CreateTenantFixture(t, ctx, dbConnectionPool, "Globex", "globex", "globex.crm.example.com")

	t.Run("adds a secondary domain", func(t *testing.T) {
		d, err := m.CreateDomain(ctx, acme.ID, "ACME.example.org", false)
		require.NoError(t, err)
		assert.Equal(t, "acme.example.org", d.Domain)
		assert.False(t, d.IsPrimary)
		assert.Equal(t, 1, CountPrimaryDomainsFixture(t, ctx, dbConnectionPool, acme.ID))
	})

	t.Run("transfers the primary flag atomically", func(t *testing.T) {
		d, err := m.CreateDomain(ctx, acme.ID, "acme.io", true)
		require.NoError(t, err)
		assert.True(t, d.IsPrimary)
		assert.Equal(t, 1, CountPrimaryDomainsFixture(t, ctx, dbConnectionPool, acme.ID))

		primary, err := m.GetPrimaryDomain(ctx, acme.ID)
		require.NoError(t, err)
		assert.Equal(t, "acme.io", primary.Domain)

		domains, err := m.GetDomainsForTenant(ctx, acme.ID)
		require.NoError(t, err)
		assert.Len(t, domains, 3)
		assert.Equal(t, "acme.io", domains[0].Domain)
	})

	t.Run("a failed transfer keeps the previous primary", func(t *testing.T) {
		_, err := m.CreateDomain(ctx, acme.ID, "globex.crm.example.com", true)
		require.ErrorIs(t, err, ErrDuplicatedDomain)

		primary, err := m.GetPrimaryDomain(ctx, acme.ID)
		require.NoError(t, err)
		assert.Equal(t, "acme.io", primary.Domain)
	})

	t.Run("rejects invalid domains", func(t *testing.T) {
		_, err := m.CreateDomain(ctx, acme.ID, "not a domain", false)
		require.ErrorIs(t, err, ErrInvalidDomain)
	})

	t.Run("rejects unknown tenants", func(t *testing.T) {
		_, err := m.CreateDomain(ctx, 999_999, "ghost.crm.example.com", false)
		require.ErrorIs(t, err, ErrTenantDoesNotExist)
	})

	t.Run("resolves tenants by domain", func(t *testing.T) {
		tnt, err := m.ResolveTenantByDomain(ctx, "Globex.CRM.example.com:443")
		require.NoError(t, err)
		assert.Equal(t, globex.ID, tnt.ID)

		tnt, err = m.ResolveTenantByDomain(ctx, "acme.example.org")
		require.NoError(t, err)
		assert.Equal(t, acme.ID, tnt.ID)

		_, err = m.ResolveTenantByDomain(ctx, "unknown.crm.example.com")
		require.ErrorIs(t, err, ErrTenantDoesNotExist)
	})

	DeleteAllTenantsFixture(t, ctx, dbConnectionPool)
}

func Test_Manager_GetTenant(t *testing.T) {
	m, dbConnectionPool := openManager(t)
	ctx := context.Background()

	acme := CreateTenantFixture(t, ctx, dbConnectionPool, "Acme", "acme", "acme.crm.example.com")
	CreateTenantFixture(t, ctx, dbConnectionPool, "Globex", "globex", "globex.crm.example.com")

	tnt, err := m.GetTenantByID(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", tnt.SchemaName)

	tnt, err = m.GetTenantBySchemaName(ctx, "globex")
	require.NoError(t, err)
	assert.Equal(t, "Globex", tnt.Name)

	_, err = m.GetTenantByID(ctx, 999_999)
	require.ErrorIs(t, err, ErrTenantDoesNotExist)

	_, err = m.GetTenantBySchemaName(ctx, "nope")
	require.ErrorIs(t, err, ErrTenantDoesNotExist)

	tenants, err := m.GetAllTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "Acme", tenants[0].Name)
	assert.Equal(t, "Globex", tenants[1].Name)

	DeleteAllTenantsFixture(t, ctx, dbConnectionPool)
}

func Test_Manager_DeleteTenant(t *testing.T) {
	m, dbConnectionPool := openManager(t)
	ctx := context.Background()

	acme := CreateTenantFixture(t, ctx, dbConnectionPool, "Acme", "acme", "acme.crm.example.com")
	require.True(t, CheckSchemaExistsFixture(t, ctx, dbConnectionPool, "acme"))

	err := m.DeleteTenant(ctx, acme.ID)
	require.NoError(t, err)

	assert.False(t, CheckSchemaExistsFixture(t, ctx, dbConnectionPool, "acme"))
	_, err = m.GetTenantByID(ctx, acme.ID)
	require.ErrorIs(t, err, ErrTenantDoesNotExist)
	exists, err := m.DomainExists(ctx, "acme.crm.example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	err = m.DeleteTenant(ctx, acme.ID)
	require.ErrorIs(t, err, ErrTenantDoesNotExist)
}

func Test_Manager_CreateDomainTx_demotesBeforeInsert(t *testing.T) {
	dbConnectionPool, mock := sqlmockdb.New(t)
	m := NewManager(WithDatabase(dbConnectionPool))
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE domains SET is_primary = false WHERE tenant_id = \$1 AND is_primary`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO domains`).
		WithArgs("acme.io", int64(7), true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "domain", "tenant_id", "is_primary", "created_at"}).
			AddRow(3, "acme.io", 7, true, now))
	mock.ExpectCommit()

	d, err := m.CreateDomain(ctx, 7, "acme.io", true)
	require.NoError(t, err)
	assert.Equal(t, &Domain{ID: 3, Domain: "acme.io", TenantID: 7, IsPrimary: true, CreatedAt: now}, d)
}

func Test_Manager_CreateDomainTx_secondaryDoesNotDemote(t *testing.T) {
	dbConnectionPool, mock := sqlmockdb.New(t)
	m := NewManager(WithDatabase(dbConnectionPool))
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO domains`).
		WithArgs("docs.acme.io", int64(7), false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "domain", "tenant_id", "is_primary", "created_at"}).
			AddRow(4, "docs.acme.io", 7, false, time.Now()))

	d, err := m.CreateDomainTx(ctx, dbConnectionPool, 7, "docs.acme.io", false)
	require.NoError(t, err)
	assert.False(t, d.IsPrimary)
}
