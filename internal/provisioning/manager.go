// Package provisioning turns validated tenant data into a usable tenant: directory entry, schema with its tables,
// primary domain and the default permission catalog.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/migrations"
	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
	"github.com/tenantcrm/crm-platform-backend/internal/permissions"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

// maxAllocationRaces bounds how many times provisioning picks new names after losing a unique-constraint race against
// a concurrent provisioning of a similarly named tenant.
const maxAllocationRaces = 3

var (
	ErrTenantCreationFailed = errors.New("tenant creation failed")
	ErrNameAllocationFailed = errors.New("tenant name allocation failed")
)

// NameGenerator allocates the schema name and primary domain of a new tenant.
type NameGenerator interface {
	GenerateSchemaName(ctx context.Context, companyName string) (string, error)
	GenerateDomainName(ctx context.Context, companyName, baseDomain string) (string, error)
	Release(schemaName, domain string)
}

var _ NameGenerator = (*tenant.NameAllocator)(nil)

// TenantSetup is the input of CreateTenantWithSetup.
type TenantSetup struct {
	Name               string                    `json:"name"`
	ContactEmail       string                    `json:"contact_email"`
	SubscriptionStatus tenant.SubscriptionStatus `json:"subscription_status,omitempty"`
}

func (s *TenantSetup) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.ContactEmail = strings.ToLower(strings.TrimSpace(s.ContactEmail))

	if s.Name == "" {
		return tenant.ErrEmptyTenantName
	}
	if err := utils.ValidateEmail(s.ContactEmail); err != nil {
		return fmt.Errorf("%w: %w", tenant.ErrInvalidContactEmail, err)
	}
	if s.SubscriptionStatus != "" && !s.SubscriptionStatus.IsValid() {
		return apperror.Validationf("invalid subscription status %q", s.SubscriptionStatus)
	}
	return nil
}

// Result describes the outcome of CreateTenantWithSetup. PermissionsWarning is set when the tenant was created but
// seeding its permission catalog failed; the seeding can be retried with SeedPermissions.
type Result struct {
	Success            bool           `json:"success"`
	Tenant             *tenant.Tenant `json:"tenant,omitempty"`
	Domain             *tenant.Domain `json:"domain,omitempty"`
	PermissionsWarning string         `json:"permissions_warning,omitempty"`
	Error              string         `json:"error,omitempty"`
}

// TenantProvisioner is what the demo request workflow needs from this package.
type TenantProvisioner interface {
	CreateTenantWithSetup(ctx context.Context, setup TenantSetup) (*Result, error)
	SeedPermissions(ctx context.Context, tenantID int64) error
}

type Manager struct {
	db             db.DBConnectionPool
	tenantManager  tenant.ManagerInterface
	nameGenerator  NameGenerator
	seeder         permissions.TenantPermissionsSeeder
	baseDomain     string
	migrationRoute migrations.MigrationRouter
}

var _ TenantProvisioner = (*Manager)(nil)

type ManagerOptions struct {
	DBConnectionPool  db.DBConnectionPool
	TenantManager     tenant.ManagerInterface
	NameGenerator     NameGenerator
	PermissionsSeeder permissions.TenantPermissionsSeeder
	BaseDomain        string
	// TenantMigrations overrides the migrations applied to new tenant schemas.
	TenantMigrations *migrations.MigrationRouter
}

func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.DBConnectionPool == nil {
		return nil, fmt.Errorf("database connection pool cannot be nil")
	}
	if opts.TenantManager == nil {
		return nil, fmt.Errorf("tenant manager cannot be nil")
	}
	if opts.NameGenerator == nil {
		return nil, fmt.Errorf("name generator cannot be nil")
	}
	if opts.PermissionsSeeder == nil {
		return nil, fmt.Errorf("permissions seeder cannot be nil")
	}

	baseDomain := strings.Trim(utils.NormalizeHost(opts.BaseDomain), ".")
	if err := utils.ValidateDNS(baseDomain); err != nil {
		return nil, fmt.Errorf("invalid base domain: %w", err)
	}

	migrationRoute := migrations.TenantMigrationRouter
	if opts.TenantMigrations != nil {
		migrationRoute = *opts.TenantMigrations
	}

	return &Manager{
		db:             opts.DBConnectionPool,
		tenantManager:  opts.TenantManager,
		nameGenerator:  opts.NameGenerator,
		seeder:         opts.PermissionsSeeder,
		baseDomain:     baseDomain,
		migrationRoute: migrationRoute,
	}, nil
}

// CreateTenantWithSetup validates setup, allocates the tenant's schema name and domain, and creates the tenant row,
// its schema with all tenant migrations applied, and its primary domain in a single transaction. If any of those
// fail nothing is left behind. Seeding the permission catalog happens afterwards and only produces a warning when it
// fails.
//
// The returned error is non-nil exactly when Result.Success is false.
func (m *Manager) CreateTenantWithSetup(ctx context.Context, setup TenantSetup) (*Result, error) {
	if err := setup.Validate(); err != nil {
		return &Result{Error: err.Error()}, err
	}

	var (
		tnt    *tenant.Tenant
		domain *tenant.Domain
		err    error
	)
	for race := 0; race < maxAllocationRaces; race++ {
		tnt, domain, err = m.allocateAndCreate(ctx, setup)
		if err == nil || !isAllocationRace(err) {
			break
		}
		log.Ctx(ctx).Warnf("lost a name allocation race provisioning %q, retrying: %v", setup.Name, err)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTenantCreationFailed, err)
		return &Result{Error: err.Error()}, err
	}

	log.Ctx(ctx).Infof("tenant %d created with schema %s and domain %s", tnt.ID, tnt.SchemaName, domain.Domain)

	result := &Result{Success: true, Tenant: tnt, Domain: domain}
	if seedErr := m.seeder.SetupTenantPermissions(ctx, tnt); seedErr != nil {
		log.Ctx(ctx).Warnf("tenant %s created without its permission catalog: %v", tnt.SchemaName, seedErr)
		result.PermissionsWarning = fmt.Sprintf("permissions were not set up, retry seeding for tenant %d: %v", tnt.ID, seedErr)
	}

	return result, nil
}

func (m *Manager) allocateAndCreate(ctx context.Context, setup TenantSetup) (*tenant.Tenant, *tenant.Domain, error) {
	schemaName, err := m.nameGenerator.GenerateSchemaName(ctx, setup.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNameAllocationFailed, err)
	}
	domainName, err := m.nameGenerator.GenerateDomainName(ctx, setup.Name, m.baseDomain)
	if err != nil {
		m.nameGenerator.Release(schemaName, "")
		return nil, nil, fmt.Errorf("%w: %w", ErrNameAllocationFailed, err)
	}

	type created struct {
		tenant *tenant.Tenant
		domain *tenant.Domain
	}
	c, err := db.RunInTransactionWithResult(ctx, m.db, nil, func(dbTx db.DBTransaction) (created, error) {
		tnt, txErr := m.tenantManager.CreateTenant(ctx, dbTx, &tenant.TenantInsert{
			Name:               setup.Name,
			SchemaName:         schemaName,
			ContactEmail:       setup.ContactEmail,
			SubscriptionStatus: setup.SubscriptionStatus,
		})
		if txErr != nil {
			return created{}, fmt.Errorf("creating tenant: %w", txErr)
		}

		if txErr = m.tenantManager.CreateTenantSchema(ctx, dbTx, schemaName); txErr != nil {
			return created{}, fmt.Errorf("creating tenant schema: %w", txErr)
		}

		txErr = schemactx.WithinTransaction(ctx, dbTx, schemaName, func(ctx context.Context, scope *schemactx.Scope) error {
			n, mErr := db.MigrateUpInTransaction(ctx, scope.SQLExecuter(), m.migrationRoute)
			if mErr != nil {
				return mErr
			}
			log.Ctx(ctx).Debugf("applied %d tenant migrations in schema %s", n, scope.SchemaName())
			return nil
		})
		if txErr != nil {
			return created{}, fmt.Errorf("applying tenant migrations: %w", txErr)
		}

		domain, txErr := m.tenantManager.CreateDomainTx(ctx, dbTx, tnt.ID, domainName, true)
		if txErr != nil {
			return created{}, fmt.Errorf("creating primary domain: %w", txErr)
		}

		return created{tenant: tnt, domain: domain}, nil
	})
	if err != nil {
		// A name taken by a concurrent provisioning stays in the allocator's memory so the retry skips it.
		if !isAllocationRace(err) {
			m.nameGenerator.Release(schemaName, domainName)
		}
		return nil, nil, err
	}

	return c.tenant, c.domain, nil
}

// SeedPermissions runs the permission catalog seeding of an existing tenant again.
func (m *Manager) SeedPermissions(ctx context.Context, tenantID int64) error {
	tnt, err := m.tenantManager.GetTenantByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("getting tenant %d: %w", tenantID, err)
	}

	if err = m.seeder.SetupTenantPermissions(ctx, tnt); err != nil {
		return fmt.Errorf("seeding permissions: %w", err)
	}
	return nil
}

func isAllocationRace(err error) bool {
	return errors.Is(err, tenant.ErrDuplicatedSchemaName) || errors.Is(err, tenant.ErrDuplicatedDomain)
}
