package dependencyinjection

import (
	"fmt"
	"time"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

const (
	TenantManagerInstanceName  = "tenant_manager_instance"
	DomainResolverInstanceName = "domain_resolver_instance"
)

func NewTenantManager(dbConnectionPool db.DBConnectionPool) (*tenant.Manager, error) {
	if dbConnectionPool == nil {
		return nil, fmt.Errorf("database connection pool cannot be nil")
	}
	return getOrCreate(TenantManagerInstanceName, func() (*tenant.Manager, error) {
		return tenant.NewManager(tenant.WithDatabase(dbConnectionPool)), nil
	})
}

// NewDomainResolver returns the cached host to tenant resolver used by the HTTP server.
func NewDomainResolver(dbConnectionPool db.DBConnectionPool, ttl time.Duration) (*tenant.CachedResolver, error) {
	tenantManager, err := NewTenantManager(dbConnectionPool)
	if err != nil {
		return nil, err
	}

	return getOrCreate(DomainResolverInstanceName, func() (*tenant.CachedResolver, error) {
		resolver, err := tenant.NewCachedResolver(tenantManager, ttl)
		if err != nil {
			return nil, fmt.Errorf("creating domain resolver: %w", err)
		}
		return resolver, nil
	})
}
