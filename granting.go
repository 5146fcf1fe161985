package prefect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuskit/prefect/directory"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
)

// Grant creates one permission row for a subject. Validation runs in a
// fixed order so callers see the most specific failure first: request
// shape, then referenced entities, then the subject, then uniqueness.
func (e *Engine) Grant(ctx context.Context, req *GrantRequest) (*grant.Grant, error) {
	// 1. Request shape and vocabulary.
	if !req.Subject.Valid() {
		return nil, ErrScopeMismatch
	}
	if !e.config.actionAllowed(req.Action) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if !e.config.targetTypeAllowed(req.TargetType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTargetType, req.TargetType)
	}
	if req.TargetType != TargetTypeSchool && req.TargetID == "" {
		return nil, fmt.Errorf("%w: %q", ErrTargetRequired, req.TargetType)
	}

	// 2. The setter comes from the authenticated context, never the body.
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrActorUnresolved
	}
	scope := scopeForActor(ctx, actor)

	// 3. Referenced entities must exist in the tenant.
	mod, err := e.resolveModule(ctx, scope.tenantID, req.Module)
	if err != nil {
		return nil, err
	}
	if req.TargetID != "" {
		exists, err := e.dir.Exists(ctx, scope.tenantID, req.TargetType, req.TargetID)
		if err != nil {
			return nil, fmt.Errorf("prefect: target lookup: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s %s", ErrTargetNotFound, req.TargetType, req.TargetID)
		}
	}

	// 4. The subject must exist, and a user subject must be active.
	gscope, err := e.verifySubject(ctx, scope.tenantID, req.Subject)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	g := &grant.Grant{
		ID:         id.NewGrantID(),
		TenantID:   scope.tenantID,
		SetterID:   actor.ID,
		ModuleID:   mod.ID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Action:     req.Action,
		Scope:      gscope,
		Title:      grantTitle(req.Module, req.Action, req.TargetType, req.TargetID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Subject.Kind == SubjectUser {
		g.UserID = req.Subject.ID
	} else {
		g.RoleID = req.Subject.ID
	}

	// 5. Uniqueness. The lookup gives a friendly failure; the store's
	// unique index backstops concurrent writers.
	key := g.Key()
	if _, err := e.store.FindGrant(ctx, &key); err == nil {
		return nil, grant.ErrDuplicate
	} else if !errors.Is(err, grant.ErrNotFound) {
		return nil, fmt.Errorf("prefect: find grant: %w", err)
	}
	if err := e.store.CreateGrant(ctx, g); err != nil {
		return nil, err
	}

	if e.plugins != nil {
		e.plugins.EmitGrantCreated(ctx, g)
	}
	return g, nil
}

// RevokeGrant deletes one grant by ID. Grants outside the actor's tenant
// read as missing, so a leaked ID cannot revoke another school's grant.
func (e *Engine) RevokeGrant(ctx context.Context, grantID id.GrantID) error {
	if _, err := e.GetGrant(ctx, grantID); err != nil {
		return err
	}
	if err := e.store.DeleteGrant(ctx, grantID); err != nil {
		return err
	}
	if e.plugins != nil {
		e.plugins.EmitGrantRevoked(ctx, grantID)
	}
	return nil
}

// GetGrant retrieves one grant by ID. Grants outside the actor's tenant
// read as missing.
func (e *Engine) GetGrant(ctx context.Context, grantID id.GrantID) (*grant.Grant, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrActorUnresolved
	}
	scope := scopeForActor(ctx, actor)

	g, err := e.store.GetGrant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	if g.TenantID != scope.tenantID {
		return nil, fmt.Errorf("grant %s: %w", grantID, grant.ErrNotFound)
	}
	return g, nil
}

// ListGrants lists grants in the calling actor's tenant. The filter's
// tenant is always overwritten with the resolved scope.
func (e *Engine) ListGrants(ctx context.Context, filter *grant.ListFilter) ([]*grant.Grant, int64, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, 0, ErrActorUnresolved
	}
	scope := scopeForActor(ctx, actor)

	if filter == nil {
		filter = &grant.ListFilter{}
	}
	filter.TenantID = scope.tenantID

	grants, err := e.store.ListGrants(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	countFilter := *filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := e.store.CountGrants(ctx, &countFilter)
	if err != nil {
		return nil, 0, err
	}
	return grants, total, nil
}

// verifySubject resolves the subject in the tenant and returns the grant
// scope its kind implies.
func (e *Engine) verifySubject(ctx context.Context, tenantID string, s Subject) (grant.Scope, error) {
	switch s.Kind {
	case SubjectUser:
		u, err := e.dir.UserByID(ctx, tenantID, s.ID)
		if err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				return "", fmt.Errorf("%w: user %s", ErrSubjectNotFound, s.ID)
			}
			return "", fmt.Errorf("prefect: user lookup: %w", err)
		}
		if !u.Active {
			return "", fmt.Errorf("%w: user %s", ErrUserInactive, s.ID)
		}
		return grant.ScopeSpecific, nil
	case SubjectRole:
		if _, err := e.dir.RoleByID(ctx, tenantID, s.ID); err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				return "", fmt.Errorf("%w: role %s", ErrSubjectNotFound, s.ID)
			}
			return "", fmt.Errorf("prefect: role lookup: %w", err)
		}
		return grant.ScopeAll, nil
	default:
		return "", ErrScopeMismatch
	}
}

// grantTitle derives the human-readable label stored on a grant, e.g.
// "assignment:read@school" or "assignment:read@class/cls_7".
func grantTitle(moduleName, action, targetType, targetID string) string {
	title := moduleName + ":" + action + "@" + targetType
	if targetID != "" {
		title += "/" + targetID
	}
	return title
}
