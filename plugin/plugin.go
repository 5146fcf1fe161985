// Package plugin defines the plugin system for Prefect.
// Plugins are notified of lifecycle events (check performed, grant created,
// reconcile applied, etc.) and can react with logging, metrics, or tracing.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCheck is called before an authorization check is evaluated.
// The req parameter is *prefect.CheckRequest (passed as any to avoid import cycle).
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, req any) error
}

// AfterCheck is called after an authorization check completes.
// The req parameter is *prefect.CheckRequest; result is *prefect.CheckResult.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Grant lifecycle hooks
// ──────────────────────────────────────────────────

// GrantCreated is called after a grant is created.
type GrantCreated interface {
	OnGrantCreated(ctx context.Context, g *grant.Grant) error
}

// GrantRevoked is called after a grant is deleted.
type GrantRevoked interface {
	OnGrantRevoked(ctx context.Context, grantID id.GrantID) error
}

// ReconcileApplied is called after a reconcile run commits. The summary
// parameter is *prefect.ReconcileSummary (passed as any to avoid import cycle).
type ReconcileApplied interface {
	OnReconcileApplied(ctx context.Context, summary any) error
}

// ──────────────────────────────────────────────────
// Module lifecycle hooks
// ──────────────────────────────────────────────────

// ModuleCreated is called after a module is registered.
type ModuleCreated interface {
	OnModuleCreated(ctx context.Context, m *module.Module) error
}

// ModuleDeleted is called after a module is deleted.
type ModuleDeleted interface {
	OnModuleDeleted(ctx context.Context, moduleID id.ModuleID) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
