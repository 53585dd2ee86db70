package db

import (
	"context"
	"fmt"
	"slices"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/migrations"
	"github.com/tenantcrm/crm-platform-backend/db/router"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

// tenantMigrationTargets returns one target per tenant schema, or only onlySchema when it is not empty. Each target
// DSN sets the search_path to the schema, so the tracking table lives next to the tenant's tables.
func tenantMigrationTargets(ctx context.Context, adminDatabaseURL, onlySchema string) ([]migrationTarget, error) {
	schemas, err := tenantSchemaNames(ctx, adminDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("getting tenants schemas: %w", err)
	}

	if onlySchema != "" {
		if !slices.Contains(schemas, onlySchema) {
			return nil, fmt.Errorf("tenant schema %s does not exist", onlySchema)
		}
		schemas = []string{onlySchema}
	}

	targets := make([]migrationTarget, 0, len(schemas))
	for _, schemaName := range schemas {
		dsn, err := router.GetDSNForSchema(adminDatabaseURL, schemaName)
		if err != nil {
			return nil, fmt.Errorf("getting DSN for schema %s: %w", schemaName, err)
		}
		targets = append(targets, migrationTarget{Name: "schema " + schemaName, DSN: dsn})
	}
	return targets, nil
}

func executeMigrationsPerTenant(
	ctx context.Context,
	adminDatabaseURL string,
	onlySchema string,
	dir migrate.MigrationDirection,
	count int,
	migrationRouter migrations.MigrationRouter,
) error {
	targets, err := tenantMigrationTargets(ctx, adminDatabaseURL, onlySchema)
	if err != nil {
		return err
	}
	return executeMigrationsOnTargets(ctx, targets, dir, count, migrationRouter)
}

func tenantSchemaNames(ctx context.Context, adminDatabaseURL string) ([]string, error) {
	dbConnectionPool, err := db.OpenDBConnectionPool(adminDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening the admin database: %w", err)
	}
	defer dbConnectionPool.Close()

	tenants, err := tenant.NewManager(tenant.WithDatabase(dbConnectionPool)).GetAllTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting all tenants: %w", err)
	}

	schemas := make([]string, 0, len(tenants))
	for _, t := range tenants {
		schemas = append(schemas, t.SchemaName)
	}
	return schemas, nil
}
