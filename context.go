package prefect

import "context"

type contextKey int

const (
	ctxKeyTenantID contextKey = iota
	ctxKeyActor
)

// WithTenant returns a context carrying the given tenant (school) ID.
// Use this for standalone mode (without Forge).
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

// WithActor returns a context carrying the authenticated actor. The
// platform's identity middleware calls this before any engine operation
// that needs a setter.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFromContext returns the authenticated actor, if present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(Actor)
	return a, ok
}

func tenantIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyTenantID).(string)
	if !ok {
		return ""
	}
	return v
}
