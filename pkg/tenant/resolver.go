package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

const DefaultDomainCacheTTL = time.Minute

// DomainResolver maps a request host to the tenant owning it.
type DomainResolver interface {
	ResolveTenantByDomain(ctx context.Context, domain string) (*Tenant, error)
}

// CachedResolver keeps recent domain resolutions in memory for ttl. Misses are not cached, so a freshly provisioned
// tenant is routable right away. Domain changes and deletions made by the CLI reach the server once the entry expires.
type CachedResolver struct {
	resolver DomainResolver
	cache    *ristretto.Cache
	ttl      time.Duration
}

var _ DomainResolver = (*CachedResolver)(nil)

func NewCachedResolver(resolver DomainResolver, ttl time.Duration) (*CachedResolver, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultDomainCacheTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating domain cache: %w", err)
	}

	return &CachedResolver{resolver: resolver, cache: cache, ttl: ttl}, nil
}

func (r *CachedResolver) ResolveTenantByDomain(ctx context.Context, domain string) (*Tenant, error) {
	domain = utils.NormalizeHost(domain)

	if cached, found := r.cache.Get(domain); found {
		if t, ok := cached.(Tenant); ok {
			return &t, nil
		}
		r.cache.Del(domain)
	}

	t, err := r.resolver.ResolveTenantByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}

	if !r.cache.SetWithTTL(domain, *t, 1, r.ttl) {
		log.Ctx(ctx).Debugf("domain cache rejected %s", domain)
	}
	r.cache.Wait()

	return t, nil
}

func (r *CachedResolver) Close() {
	r.cache.Close()
}
