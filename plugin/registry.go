package plugin

import (
	"context"
	"log/slog"

	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeCheckEntry struct {
	name string
	hook BeforeCheck
}
type afterCheckEntry struct {
	name string
	hook AfterCheck
}
type grantCreatedEntry struct {
	name string
	hook GrantCreated
}
type grantRevokedEntry struct {
	name string
	hook GrantRevoked
}
type reconcileAppliedEntry struct {
	name string
	hook ReconcileApplied
}
type moduleCreatedEntry struct {
	name string
	hook ModuleCreated
}
type moduleDeletedEntry struct {
	name string
	hook ModuleDeleted
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck      []beforeCheckEntry
	afterCheck       []afterCheckEntry
	grantCreated     []grantCreatedEntry
	grantRevoked     []grantRevokedEntry
	reconcileApplied []reconcileAppliedEntry
	moduleCreated    []moduleCreatedEntry
	moduleDeleted    []moduleDeletedEntry
	shutdown         []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeCheck); ok {
		r.beforeCheck = append(r.beforeCheck, beforeCheckEntry{name, h})
	}
	if h, ok := p.(AfterCheck); ok {
		r.afterCheck = append(r.afterCheck, afterCheckEntry{name, h})
	}
	if h, ok := p.(GrantCreated); ok {
		r.grantCreated = append(r.grantCreated, grantCreatedEntry{name, h})
	}
	if h, ok := p.(GrantRevoked); ok {
		r.grantRevoked = append(r.grantRevoked, grantRevokedEntry{name, h})
	}
	if h, ok := p.(ReconcileApplied); ok {
		r.reconcileApplied = append(r.reconcileApplied, reconcileAppliedEntry{name, h})
	}
	if h, ok := p.(ModuleCreated); ok {
		r.moduleCreated = append(r.moduleCreated, moduleCreatedEntry{name, h})
	}
	if h, ok := p.(ModuleDeleted); ok {
		r.moduleDeleted = append(r.moduleDeleted, moduleDeletedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Check event emitters
// ──────────────────────────────────────────────────

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, req any) {
	for _, e := range r.beforeCheck {
		if err := e.hook.OnBeforeCheck(ctx, req); err != nil {
			r.logHookError("OnBeforeCheck", e.name, err)
		}
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, req, result any) {
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, req, result); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Grant event emitters
// ──────────────────────────────────────────────────

// EmitGrantCreated notifies all plugins that implement GrantCreated.
func (r *Registry) EmitGrantCreated(ctx context.Context, g *grant.Grant) {
	for _, e := range r.grantCreated {
		if err := e.hook.OnGrantCreated(ctx, g); err != nil {
			r.logHookError("OnGrantCreated", e.name, err)
		}
	}
}

// EmitGrantRevoked notifies all plugins that implement GrantRevoked.
func (r *Registry) EmitGrantRevoked(ctx context.Context, grantID id.GrantID) {
	for _, e := range r.grantRevoked {
		if err := e.hook.OnGrantRevoked(ctx, grantID); err != nil {
			r.logHookError("OnGrantRevoked", e.name, err)
		}
	}
}

// EmitReconcileApplied notifies all plugins that implement ReconcileApplied.
func (r *Registry) EmitReconcileApplied(ctx context.Context, summary any) {
	for _, e := range r.reconcileApplied {
		if err := e.hook.OnReconcileApplied(ctx, summary); err != nil {
			r.logHookError("OnReconcileApplied", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Module event emitters
// ──────────────────────────────────────────────────

// EmitModuleCreated notifies all plugins that implement ModuleCreated.
func (r *Registry) EmitModuleCreated(ctx context.Context, m *module.Module) {
	for _, e := range r.moduleCreated {
		if err := e.hook.OnModuleCreated(ctx, m); err != nil {
			r.logHookError("OnModuleCreated", e.name, err)
		}
	}
}

// EmitModuleDeleted notifies all plugins that implement ModuleDeleted.
func (r *Registry) EmitModuleDeleted(ctx context.Context, moduleID id.ModuleID) {
	for _, e := range r.moduleDeleted {
		if err := e.hook.OnModuleDeleted(ctx, moduleID); err != nil {
			r.logHookError("OnModuleDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
