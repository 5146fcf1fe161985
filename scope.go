package prefect

import (
	"context"

	"github.com/xraph/forge"
)

type tenantScope struct {
	tenantID string
}

// scopeForActor resolves the tenant a request runs in. The actor's own
// tenant wins; forge.Scope and the standalone context tenant are fallbacks
// for calls made outside an authenticated request.
func scopeForActor(ctx context.Context, actor Actor) tenantScope {
	if actor.TenantID != "" {
		return tenantScope{tenantID: actor.TenantID}
	}
	if s, ok := forge.ScopeFrom(ctx); ok {
		return tenantScope{tenantID: s.OrgID()}
	}
	return tenantScope{tenantID: tenantIDFromContext(ctx)}
}
