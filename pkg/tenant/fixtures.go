package tenant

import (
	"context"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/migrations"
	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
)

// DeleteAllTenantsFixture removes every tenant, domain and tenant schema.
func DeleteAllTenantsFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool) {
	t.Helper()

	var schemasToDrop []string
	err := dbConnectionPool.SelectContext(ctx, &schemasToDrop, "SELECT schema_name FROM tenants")
	require.NoError(t, err)

	_, err = dbConnectionPool.ExecContext(ctx, "DELETE FROM domains")
	require.NoError(t, err)
	_, err = dbConnectionPool.ExecContext(ctx, "DELETE FROM tenants")
	require.NoError(t, err)

	for _, schema := range schemasToDrop {
		q := fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schema))
		_, err = dbConnectionPool.ExecContext(ctx, q)
		require.NoError(t, err)
	}
}

// CreateTenantFixture registers a tenant with its schema and primary domain.
func CreateTenantFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool, name, schemaName, domain string) *Tenant {
	t.Helper()

	m := NewManager(WithDatabase(dbConnectionPool))
	tnt, err := db.RunInTransactionWithResult(ctx, dbConnectionPool, nil, func(dbTx db.DBTransaction) (*Tenant, error) {
		tnt, err := m.CreateTenant(ctx, dbTx, &TenantInsert{Name: name, SchemaName: schemaName, ContactEmail: "owner@" + domain})
		if err != nil {
			return nil, err
		}
		if err = m.CreateTenantSchema(ctx, dbTx, schemaName); err != nil {
			return nil, err
		}
		if _, err = m.CreateDomainTx(ctx, dbTx, tnt.ID, domain, true); err != nil {
			return nil, err
		}
		return tnt, nil
	})
	require.NoError(t, err)

	return tnt
}

func CheckSchemaExistsFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool, schemaName string) bool {
	t.Helper()

	var exists bool
	err := dbConnectionPool.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)", schemaName)
	require.NoError(t, err)

	return exists
}

// TenantSchemaMatchTablesFixture asserts the tenant schema holds exactly the expected tables.
func TenantSchemaMatchTablesFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool, schemaName string, expectedTableNames []string) {
	t.Helper()

	var tableNames []string
	err := dbConnectionPool.SelectContext(ctx, &tableNames, "SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name", schemaName)
	require.NoError(t, err)

	assert.ElementsMatch(t, expectedTableNames, tableNames)
}

func CountPrimaryDomainsFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool, tenantID int64) int {
	t.Helper()

	var count int
	err := dbConnectionPool.GetContext(ctx, &count, "SELECT COUNT(*) FROM domains WHERE tenant_id = $1 AND is_primary", tenantID)
	require.NoError(t, err)

	return count
}

// MigrateTenantSchemaFixture applies the tenant migrations inside the schema of a tenant created with
// CreateTenantFixture.
func MigrateTenantSchemaFixture(t *testing.T, ctx context.Context, dbConnectionPool db.DBConnectionPool, schemaName string) {
	t.Helper()

	runner, err := schemactx.NewRunner(dbConnectionPool)
	require.NoError(t, err)
	err = runner.WithSchema(ctx, schemaName, func(ctx context.Context, scope *schemactx.Scope) error {
		_, mErr := db.MigrateUpInTransaction(ctx, scope.SQLExecuter(), migrations.TenantMigrationRouter)
		return mErr
	})
	require.NoError(t, err)
}
