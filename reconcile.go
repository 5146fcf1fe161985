package prefect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
)

// Reconcile replaces a subject's grant set on one target with the desired
// state, computing the minimal diff and applying it in one transaction.
// Modules not named in the request are left untouched. It returns the
// summary of changes and the subject's resulting grants on the named
// modules, paginated by Limit and Offset.
func (e *Engine) Reconcile(ctx context.Context, req *ReconcileRequest) (*ReconcileSummary, []*grant.Grant, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, nil, ErrActorUnresolved
	}
	scope := scopeForActor(ctx, actor)

	if !req.Subject.Valid() {
		return nil, nil, ErrScopeMismatch
	}
	if _, err := e.verifySubject(ctx, scope.tenantID, req.Subject); err != nil {
		return nil, nil, err
	}

	// The target is given whole or not at all. Absent, the run addresses
	// the subject's own school.
	targetType, targetID := req.TargetType, req.TargetID
	switch {
	case targetType == "" && targetID == "":
		targetType, targetID = TargetTypeSchool, scope.tenantID
	case targetType == "" || targetID == "":
		return nil, nil, ErrTargetIncomplete
	default:
		if !e.config.targetTypeAllowed(targetType) {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTargetType, targetType)
		}
		exists, err := e.dir.Exists(ctx, scope.tenantID, targetType, targetID)
		if err != nil {
			return nil, nil, fmt.Errorf("prefect: target lookup: %w", err)
		}
		if !exists {
			return nil, nil, fmt.Errorf("%w: %s %s", ErrTargetNotFound, targetType, targetID)
		}
	}

	// Merge duplicate module entries and deduplicate actions, validating
	// the vocabulary as we go.
	desired := make(map[string]map[string]bool, len(req.Desired))
	names := make([]string, 0, len(req.Desired))
	for _, ma := range req.Desired {
		if ma.Module == "" {
			return nil, nil, fmt.Errorf("%w: empty module name", module.ErrNotFound)
		}
		actions, ok := desired[ma.Module]
		if !ok {
			actions = make(map[string]bool, len(ma.Actions))
			desired[ma.Module] = actions
			names = append(names, ma.Module)
		}
		for _, action := range ma.Actions {
			if !e.config.actionAllowed(action) {
				return nil, nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
			}
			actions[action] = true
		}
	}

	// Any unknown module aborts before a single row changes.
	modules, err := e.resolveModules(ctx, scope.tenantID, names)
	if err != nil {
		return nil, nil, err
	}

	var userID, roleID string
	var gscope grant.Scope
	if req.Subject.Kind == SubjectUser {
		userID, gscope = req.Subject.ID, grant.ScopeSpecific
	} else {
		roleID, gscope = req.Subject.ID, grant.ScopeAll
	}

	now := time.Now().UTC()
	var diff grant.Diff
	for _, name := range names {
		mod := modules[name]
		existing, err := e.store.ListGrants(ctx, &grant.ListFilter{
			TenantID:   scope.tenantID,
			UserID:     userID,
			RoleID:     roleID,
			ModuleID:   mod.ID,
			TargetType: targetType,
			TargetID:   targetID,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("prefect: list grants: %w", err)
		}

		pending := make(map[string]bool, len(desired[name]))
		for action := range desired[name] {
			pending[action] = true
		}
		for _, g := range existing {
			if pending[g.Action] {
				// Kept rows get their provenance refreshed.
				delete(pending, g.Action)
				kept := *g
				kept.SetterID = actor.ID
				kept.Title = grantTitle(name, g.Action, targetType, targetID)
				kept.UpdatedAt = now
				diff.Update = append(diff.Update, &kept)
			} else {
				diff.Delete = append(diff.Delete, g.ID)
			}
		}
		actions := make([]string, 0, len(pending))
		for action := range pending {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		for _, action := range actions {
			diff.Create = append(diff.Create, &grant.Grant{
				ID:         id.NewGrantID(),
				TenantID:   scope.tenantID,
				UserID:     userID,
				RoleID:     roleID,
				SetterID:   actor.ID,
				ModuleID:   mod.ID,
				TargetType: targetType,
				TargetID:   targetID,
				Action:     action,
				Scope:      gscope,
				Title:      grantTitle(name, action, targetType, targetID),
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
	}

	if !diff.Empty() {
		if err := e.store.ApplyGrantDiff(ctx, &diff); err != nil {
			return nil, nil, fmt.Errorf("prefect: apply diff: %w", err)
		}
	}

	summary := &ReconcileSummary{
		Created: len(diff.Create),
		Updated: len(diff.Update),
		Deleted: len(diff.Delete),
	}

	result, err := e.reconciledPage(ctx, scope.tenantID, userID, roleID, targetType, targetID, names, modules, req.Limit, req.Offset)
	if err != nil {
		return nil, nil, err
	}

	if e.plugins != nil {
		e.plugins.EmitReconcileApplied(ctx, summary)
	}
	return summary, result, nil
}

// reconciledPage re-reads the subject's grants on the named modules after
// the diff commits and returns one stable, paginated page ordered by
// module name then action.
func (e *Engine) reconciledPage(ctx context.Context, tenantID, userID, roleID, targetType, targetID string, names []string, modules map[string]*module.Module, limit, offset int) ([]*grant.Grant, error) {
	moduleName := make(map[string]string, len(modules))
	var all []*grant.Grant
	for _, name := range names {
		mod := modules[name]
		moduleName[mod.ID.String()] = name
		grants, err := e.store.ListGrants(ctx, &grant.ListFilter{
			TenantID:   tenantID,
			UserID:     userID,
			RoleID:     roleID,
			ModuleID:   mod.ID,
			TargetType: targetType,
			TargetID:   targetID,
		})
		if err != nil {
			return nil, fmt.Errorf("prefect: list grants: %w", err)
		}
		all = append(all, grants...)
	}
	sort.Slice(all, func(i, j int) bool {
		ni, nj := moduleName[all[i].ModuleID.String()], moduleName[all[j].ModuleID.String()]
		if ni != nj {
			return ni < nj
		}
		return all[i].Action < all[j].Action
	})

	if offset >= len(all) {
		return []*grant.Grant{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
