package prefect

import (
	"context"

	"github.com/campuskit/prefect/module"
)

// ModuleCache caches module-name resolution per tenant. It is an
// optimization only: the engine always falls back to a fresh store lookup
// on a miss, so correctness never depends on cache contents. Resolver
// decisions themselves are never cached; every check re-queries the store.
type ModuleCache interface {
	// Get returns a cached module, if available.
	Get(ctx context.Context, tenantID, name string) (*module.Module, bool)

	// Set stores a module in the cache.
	Set(ctx context.Context, m *module.Module)

	// Invalidate removes one module from the cache.
	Invalidate(ctx context.Context, tenantID, name string)

	// InvalidateTenant removes all cached modules for a tenant.
	InvalidateTenant(ctx context.Context, tenantID string)
}
