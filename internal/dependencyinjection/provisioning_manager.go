package dependencyinjection

import (
	"fmt"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/internal/permissions"
	"github.com/tenantcrm/crm-platform-backend/internal/provisioning"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

const ProvisioningManagerInstanceName = "provisioning_manager_instance"

type ProvisioningManagerOptions struct {
	DBConnectionPool db.DBConnectionPool
	BaseDomain       string
}

// NewProvisioningManager wires the name allocator and the permissions seeder into a provisioning.Manager.
func NewProvisioningManager(opts ProvisioningManagerOptions) (*provisioning.Manager, error) {
	tenantManager, err := NewTenantManager(opts.DBConnectionPool)
	if err != nil {
		return nil, err
	}

	return getOrCreate(ProvisioningManagerInstanceName, func() (*provisioning.Manager, error) {
		nameAllocator, err := tenant.NewNameAllocator(tenantManager)
		if err != nil {
			return nil, fmt.Errorf("creating name allocator: %w", err)
		}

		runner, err := schemactx.NewRunner(opts.DBConnectionPool)
		if err != nil {
			return nil, fmt.Errorf("creating schema runner: %w", err)
		}

		seeder, err := permissions.NewSeeder(runner, permissions.DefaultCatalog())
		if err != nil {
			return nil, fmt.Errorf("creating permissions seeder: %w", err)
		}

		manager, err := provisioning.NewManager(provisioning.ManagerOptions{
			DBConnectionPool:  opts.DBConnectionPool,
			TenantManager:     tenantManager,
			NameGenerator:     nameAllocator,
			PermissionsSeeder: seeder,
			BaseDomain:        opts.BaseDomain,
		})
		if err != nil {
			return nil, fmt.Errorf("creating provisioning manager: %w", err)
		}
		return manager, nil
	})
}
