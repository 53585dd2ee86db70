package tenant

import (
	"context"
	"errors"
)

var ErrTenantNotFoundInContext = errors.New("tenant not found in context")

type tenantContextKey struct{}

// GetTenantFromContext retrieves the tenant resolved for the current request.
func GetTenantFromContext(ctx context.Context) (*Tenant, error) {
	currentTenant, ok := ctx.Value(tenantContextKey{}).(*Tenant)
	if !ok || currentTenant == nil {
		return nil, ErrTenantNotFoundInContext
	}
	return currentTenant, nil
}

// SetTenantInContext stores the tenant information in the context.
func SetTenantInContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, t)
}
