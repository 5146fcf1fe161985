package prefect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuskit/prefect/decisionlog"
	"github.com/campuskit/prefect/directory"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/plugin"
	"github.com/campuskit/prefect/store"
)

// Engine is the central permission engine. It resolves checks, creates
// grants, and reconciles desired grant sets against the store.
type Engine struct {
	store   store.Store
	dir     directory.Directory
	cache   ModuleCache
	plugins *plugin.Registry
	logger  *slog.Logger
	config  Config
}

// NewEngine creates a new Prefect engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("prefect: store is required")
	}
	if e.dir == nil {
		return nil, errors.New("prefect: directory is required")
	}
	if e.config.SuperAdminRole == "" {
		e.config.SuperAdminRole = DefaultConfig().SuperAdminRole
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Directory returns the platform directory collaborator.
func (e *Engine) Directory() directory.Directory { return e.dir }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// Check resolves one authorization decision. This is the hot path: every
// protected request passes through here, and every call re-queries the
// store. Decisions are never cached across requests.
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	start := time.Now()
	scope := scopeForActor(ctx, req.Actor)

	if !e.config.actionAllowed(req.Action) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if !e.config.targetTypeAllowed(req.TargetType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTargetType, req.TargetType)
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeCheck(ctx, req)
	}

	result, err := e.resolve(ctx, scope, req)
	if err != nil {
		return nil, err
	}
	result.EvalTimeNs = time.Since(start).Nanoseconds()

	e.recordDecision(ctx, scope, req, result)

	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, req, result)
	}

	return result, nil
}

func (e *Engine) resolve(ctx context.Context, scope tenantScope, req *CheckRequest) (*CheckResult, error) {
	// 1. Super-administrator bypass: no row lookup at all.
	if req.Actor.RoleTitle == e.config.SuperAdminRole {
		return &CheckResult{
			Allowed:   true,
			Decision:  DecisionAllowSuperAdmin,
			MatchedBy: MatchInfo{Source: "super_admin", Detail: "role " + req.Actor.RoleTitle},
		}, nil
	}

	// 2. The module must be registered; an unknown module denies rather
	// than errors so probing cannot distinguish "no module" from "no grant".
	mod, err := e.resolveModule(ctx, scope.tenantID, req.Module)
	if err != nil {
		if isModuleNotFound(err) {
			return &CheckResult{
				Decision: DecisionDenyUnknownModule,
				Reason:   "module " + req.Module + " is not registered",
			}, nil
		}
		return nil, fmt.Errorf("prefect: resolve module: %w", err)
	}

	// 3. One row matching the subject-union predicate is enough. The
	// wildcard action rides along in the same query.
	actions := []string{req.Action}
	if req.Action != WildcardAction {
		actions = append(actions, WildcardAction)
	}
	matched, err := e.store.MatchGrant(ctx, &grant.MatchQuery{
		TenantID:   scope.tenantID,
		UserID:     req.Actor.ID,
		RoleID:     req.Actor.RoleID,
		ModuleID:   mod.ID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Actions:    actions,
	})
	if err != nil {
		if errors.Is(err, grant.ErrNotFound) {
			return &CheckResult{
				Decision: DecisionDenyNoGrant,
				Reason:   "no grant matches",
			}, nil
		}
		return nil, fmt.Errorf("prefect: match grant: %w", err)
	}

	return &CheckResult{
		Allowed:  true,
		Decision: DecisionAllow,
		MatchedBy: MatchInfo{
			Source:  "grant",
			GrantID: matched.ID.String(),
			Detail:  matched.Title,
		},
	}, nil
}

// Enforce returns ErrAccessDenied if the check does not allow the request.
// The error carries no detail about which rule failed.
func (e *Engine) Enforce(ctx context.Context, req *CheckRequest) error {
	result, err := e.Check(ctx, req)
	if err != nil {
		return fmt.Errorf("prefect check: %w", err)
	}
	if !result.Allowed {
		return ErrAccessDenied
	}
	return nil
}

// Can is a shorthand for a simple authorization check.
func (e *Engine) Can(ctx context.Context, actor Actor, moduleName, action, targetType, targetID string) (bool, error) {
	result, err := e.Check(ctx, &CheckRequest{
		Actor:      actor,
		Module:     moduleName,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	})
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// recordDecision appends the outcome to the decision log when enabled.
// Logging failures never fail the check.
func (e *Engine) recordDecision(ctx context.Context, scope tenantScope, req *CheckRequest, result *CheckResult) {
	if !e.config.LogDecisions {
		return
	}
	entry := &decisionlog.Entry{
		ID:         id.NewDecisionLogID(),
		TenantID:   scope.tenantID,
		ActorID:    req.Actor.ID,
		RoleID:     req.Actor.RoleID,
		Module:     req.Module,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Allowed:    result.Allowed,
		Decision:   string(result.Decision),
		Reason:     result.Reason,
		EvalTimeNs: result.EvalTimeNs,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.store.CreateDecision(ctx, entry); err != nil {
		e.logger.Warn("decision log write failed",
			slog.String("tenant", scope.tenantID),
			slog.String("actor", req.Actor.ID),
			slog.String("error", err.Error()),
		)
	}
}

// ListDecisions returns decision log entries for the actor's tenant with a
// total count. The tenant filter always comes from the actor.
func (e *Engine) ListDecisions(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, int64, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, 0, ErrActorUnresolved
	}
	scope := scopeForActor(ctx, actor)

	if filter == nil {
		filter = &decisionlog.QueryFilter{}
	}
	filter.TenantID = scope.tenantID

	entries, err := e.store.ListDecisions(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	countFilter := *filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := e.store.CountDecisions(ctx, &countFilter)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// GetDecision retrieves one decision log entry. Entries outside the actor's
// tenant read as missing.
func (e *Engine) GetDecision(ctx context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrActorUnresolved
	}
	scope := scopeForActor(ctx, actor)

	entry, err := e.store.GetDecision(ctx, logID)
	if err != nil {
		return nil, err
	}
	if entry.TenantID != scope.tenantID {
		return nil, fmt.Errorf("decision %s: %w", logID, decisionlog.ErrNotFound)
	}
	return entry, nil
}
