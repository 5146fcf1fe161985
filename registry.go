package prefect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
)

// resolveModule resolves one module name within a tenant, reading through
// the cache when one is configured. A miss always falls back to the store.
func (e *Engine) resolveModule(ctx context.Context, tenantID, name string) (*module.Module, error) {
	if e.cache != nil {
		if m, ok := e.cache.Get(ctx, tenantID, name); ok {
			return m, nil
		}
	}
	m, err := e.store.GetModuleByName(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(ctx, m)
	}
	return m, nil
}

// resolveModules resolves a batch of module names. Cached entries are used
// where present; the remainder is fetched in one store call. Any unknown
// name fails the whole batch.
func (e *Engine) resolveModules(ctx context.Context, tenantID string, names []string) (map[string]*module.Module, error) {
	resolved := make(map[string]*module.Module, len(names))
	var missing []string
	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue
		}
		if e.cache != nil {
			if m, ok := e.cache.Get(ctx, tenantID, name); ok {
				resolved[name] = m
				continue
			}
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		fetched, err := e.store.ResolveModuleNames(ctx, tenantID, missing)
		if err != nil {
			return nil, err
		}
		for name, m := range fetched {
			resolved[name] = m
			if e.cache != nil {
				e.cache.Set(ctx, m)
			}
		}
	}
	return resolved, nil
}

// CreateModule registers a new capability domain in the actor's tenant.
func (e *Engine) CreateModule(ctx context.Context, name string) (*module.Module, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrActorUnresolved
	}
	scope := scopeForActor(ctx, actor)
	if name == "" {
		return nil, fmt.Errorf("prefect: module name is empty")
	}

	now := time.Now().UTC()
	m := &module.Module{
		ID:        id.NewModuleID(),
		TenantID:  scope.tenantID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(ctx, m)
	}
	if e.plugins != nil {
		e.plugins.EmitModuleCreated(ctx, m)
	}
	return m, nil
}

// ListModules returns modules in the actor's tenant with a total count.
// The tenant filter always comes from the actor, never from the caller.
func (e *Engine) ListModules(ctx context.Context, filter *module.ListFilter) ([]*module.Module, int64, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, 0, ErrActorUnresolved
	}
	scope := scopeForActor(ctx, actor)

	if filter == nil {
		filter = &module.ListFilter{}
	}
	filter.TenantID = scope.tenantID

	modules, err := e.store.ListModules(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	countFilter := *filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := e.store.CountModules(ctx, &countFilter)
	if err != nil {
		return nil, 0, err
	}
	return modules, total, nil
}

// DeleteModule removes a module. Fails with module.ErrInUse while grants
// still reference it (restrict, never cascade).
func (e *Engine) DeleteModule(ctx context.Context, moduleID id.ModuleID) error {
	m, err := e.store.GetModule(ctx, moduleID)
	if err != nil {
		return err
	}
	if err := e.store.DeleteModule(ctx, moduleID); err != nil {
		return err
	}
	if e.cache != nil {
		e.cache.Invalidate(ctx, m.TenantID, m.Name)
	}
	if e.plugins != nil {
		e.plugins.EmitModuleDeleted(ctx, moduleID)
	}
	return nil
}

// isModuleNotFound reports whether err is the module missing condition.
func isModuleNotFound(err error) bool {
	return errors.Is(err, module.ErrNotFound)
}
