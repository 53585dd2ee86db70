package dbtest

import (
	"net/http"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stellar/go-stellar-sdk/support/db/dbtest"

	adminmigrations "github.com/tenantcrm/crm-platform-backend/db/migrations/admin-migrations"
)

type migrationConfig struct {
	tableName string
	fs        http.FileSystem
}

var adminMigrationsConfig = migrationConfig{tableName: "admin_migrations", fs: http.FS(adminmigrations.FS)}

func OpenWithoutMigrations(t *testing.T) *dbtest.DB {
	db := dbtest.Postgres(t)
	return db
}

func openWithMigrations(t *testing.T, configs ...migrationConfig) *dbtest.DB {
	db := OpenWithoutMigrations(t)

	conn := db.Open()
	defer conn.Close()

	for _, config := range configs {
		ms := migrate.MigrationSet{TableName: config.tableName}
		m := migrate.HttpFileSystemMigrationSource{FileSystem: config.fs}
		_, err := ms.ExecMax(conn.DB, "postgres", m, migrate.Up, 0)
		if err != nil {
			t.Fatal(err)
		}
	}

	return db
}

// Open returns a test database with the shared namespace migrated. Tenant schemas are created by the tests that need
// them, the same way provisioning creates them.
func Open(t *testing.T) *dbtest.DB {
	return openWithMigrations(t, adminMigrationsConfig)
}
