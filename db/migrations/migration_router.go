package migrations

import (
	"net/http"

	adminmigrations "github.com/tenantcrm/crm-platform-backend/db/migrations/admin-migrations"
	tenantmigrations "github.com/tenantcrm/crm-platform-backend/db/migrations/tenant-migrations"
)

// MigrationRouter couples a set of embedded migration files with the table sql-migrate uses to track them.
type MigrationRouter struct {
	TableName string
	FS        http.FileSystem
}

var (
	// AdminMigrationRouter holds the shared namespace: tenant directory and signup requests.
	AdminMigrationRouter = MigrationRouter{TableName: "admin_migrations", FS: http.FS(adminmigrations.FS)}
	// TenantMigrationRouter holds the tables created inside every tenant schema.
	TenantMigrationRouter = MigrationRouter{TableName: "tenant_migrations", FS: http.FS(tenantmigrations.FS)}
)
