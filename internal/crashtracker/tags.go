package crashtracker

import (
	"context"
	"maps"

	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

type tagsContextKey struct{}

// WithTags returns a copy of ctx carrying tags on top of the ones it already had.
func WithTags(ctx context.Context, tags map[string]string) context.Context {
	merged := make(map[string]string)
	if current, ok := ctx.Value(tagsContextKey{}).(map[string]string); ok {
		maps.Copy(merged, current)
	}
	maps.Copy(merged, tags)
	return context.WithValue(ctx, tagsContextKey{}, merged)
}

// TagsFromContext returns the tags set with WithTags, plus the tenant and schema ctx is bound to, if any.
func TagsFromContext(ctx context.Context) map[string]string {
	tags := make(map[string]string)
	if current, ok := ctx.Value(tagsContextKey{}).(map[string]string); ok {
		maps.Copy(tags, current)
	}
	if scope, ok := schemactx.FromContext(ctx); ok {
		tags["schema_name"] = scope.SchemaName()
	}
	if t, err := tenant.GetTenantFromContext(ctx); err == nil && t != nil {
		tags["tenant_name"] = t.Name
		tags["schema_name"] = t.SchemaName
	}
	return tags
}
