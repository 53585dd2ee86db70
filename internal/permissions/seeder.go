package permissions

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

// TenantPermissionsSeeder installs the role and permission catalog in a tenant schema.
type TenantPermissionsSeeder interface {
	SetupTenantPermissions(ctx context.Context, t *tenant.Tenant) error
}

type Seeder struct {
	runner  *schemactx.Runner
	catalog Catalog
}

var _ TenantPermissionsSeeder = (*Seeder)(nil)

func NewSeeder(runner *schemactx.Runner, catalog Catalog) (*Seeder, error) {
	if runner == nil {
		return nil, fmt.Errorf("schema runner cannot be nil")
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("validating permissions catalog: %w", err)
	}
	return &Seeder{runner: runner, catalog: catalog}, nil
}

// SetupTenantPermissions upserts the catalog into t's schema. Running it again converges the schema to the catalog
// without duplicating rows, so it is safe to retry after a failure.
func (s *Seeder) SetupTenantPermissions(ctx context.Context, t *tenant.Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}

	err := s.runner.WithSchema(ctx, t.SchemaName, func(ctx context.Context, scope *schemactx.Scope) error {
		return s.seed(ctx, scope.SQLExecuter())
	})
	if err != nil {
		return fmt.Errorf("seeding permissions for tenant %s: %w", t.SchemaName, err)
	}

	log.Ctx(ctx).Infof("seeded %d roles and %d permissions for tenant %s", len(s.catalog.Roles), len(s.catalog.Permissions), t.SchemaName)
	return nil
}

func (s *Seeder) seed(ctx context.Context, sqlExec db.SQLExecuter) error {
	codes := make([]string, 0, len(s.catalog.Permissions))
	descriptions := make([]string, 0, len(s.catalog.Permissions))
	for _, p := range s.catalog.Permissions {
		codes = append(codes, p.Code)
		descriptions = append(descriptions, p.Description)
	}

	const upsertPermissions = `
		INSERT INTO permissions (code, description)
		SELECT * FROM UNNEST($1::text[], $2::text[])
		ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description
	`
	if _, err := sqlExec.ExecContext(ctx, upsertPermissions, pq.Array(codes), pq.Array(descriptions)); err != nil {
		return fmt.Errorf("upserting permissions: %w", err)
	}

	roleNames := make([]string, 0, len(s.catalog.Roles))
	roleDescriptions := make([]string, 0, len(s.catalog.Roles))
	var grantRoles, grantCodes []string
	for _, r := range s.catalog.Roles {
		roleNames = append(roleNames, r.Name)
		roleDescriptions = append(roleDescriptions, r.Description)
		for _, code := range r.Permissions {
			grantRoles = append(grantRoles, r.Name)
			grantCodes = append(grantCodes, code)
		}
	}

	const upsertRoles = `
		INSERT INTO roles (name, description)
		SELECT * FROM UNNEST($1::text[], $2::text[])
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
	`
	if _, err := sqlExec.ExecContext(ctx, upsertRoles, pq.Array(roleNames), pq.Array(roleDescriptions)); err != nil {
		return fmt.Errorf("upserting roles: %w", err)
	}

	const insertGrants = `
		INSERT INTO role_permissions (role_name, permission_code)
		SELECT * FROM UNNEST($1::text[], $2::text[])
		ON CONFLICT DO NOTHING
	`
	if _, err := sqlExec.ExecContext(ctx, insertGrants, pq.Array(grantRoles), pq.Array(grantCodes)); err != nil {
		return fmt.Errorf("granting role permissions: %w", err)
	}

	return nil
}
