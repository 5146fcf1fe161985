package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/campuskit/prefect/decisionlog"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
)

// ──────────────────────────────────────────────────
// Module model
// ──────────────────────────────────────────────────

type moduleModel struct {
	grove.BaseModel `grove:"table:prefect_modules"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func moduleToModel(m *module.Module) *moduleModel {
	return &moduleModel{
		ID:        m.ID.String(),
		TenantID:  m.TenantID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func moduleFromModel(m *moduleModel) *module.Module {
	mid, _ := id.ParseModuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &module.Module{
		ID:        mid,
		TenantID:  m.TenantID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Grant model
// ──────────────────────────────────────────────────

// grantModel stores an empty string for an unscoped target instead of NULL
// so the six-tuple unique index covers unscoped grants too.
type grantModel struct {
	grove.BaseModel `grove:"table:prefect_grants"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	UserID          string    `grove:"user_id,notnull"`
	RoleID          string    `grove:"role_id,notnull"`
	SetterID        string    `grove:"setter_id,notnull"`
	ModuleID        string    `grove:"module_id,notnull"`
	TargetType      string    `grove:"target_type,notnull"`
	TargetID        string    `grove:"target_id,notnull"`
	Action          string    `grove:"action,notnull"`
	Scope           string    `grove:"scope,notnull"`
	Title           string    `grove:"title"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func grantToModel(g *grant.Grant) *grantModel {
	return &grantModel{
		ID:         g.ID.String(),
		TenantID:   g.TenantID,
		UserID:     g.UserID,
		RoleID:     g.RoleID,
		SetterID:   g.SetterID,
		ModuleID:   g.ModuleID.String(),
		TargetType: g.TargetType,
		TargetID:   g.TargetID,
		Action:     g.Action,
		Scope:      string(g.Scope),
		Title:      g.Title,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
}

func grantFromModel(m *grantModel) *grant.Grant {
	gid, _ := id.ParseGrantID(m.ID)        //nolint:errcheck // stored IDs are always valid
	mid, _ := id.ParseModuleID(m.ModuleID) //nolint:errcheck
	return &grant.Grant{
		ID:         gid,
		TenantID:   m.TenantID,
		UserID:     m.UserID,
		RoleID:     m.RoleID,
		SetterID:   m.SetterID,
		ModuleID:   mid,
		TargetType: m.TargetType,
		TargetID:   m.TargetID,
		Action:     m.Action,
		Scope:      grant.Scope(m.Scope),
		Title:      m.Title,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Decision log model
// ──────────────────────────────────────────────────

type decisionLogModel struct {
	grove.BaseModel `grove:"table:prefect_decision_logs"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	ActorID         string    `grove:"actor_id,notnull"`
	RoleID          string    `grove:"role_id"`
	Module          string    `grove:"module,notnull"`
	Action          string    `grove:"action,notnull"`
	TargetType      string    `grove:"target_type,notnull"`
	TargetID        string    `grove:"target_id"`
	Allowed         bool      `grove:"allowed,notnull"`
	Decision        string    `grove:"decision,notnull"`
	Reason          string    `grove:"reason"`
	EvalTimeNs      int64     `grove:"eval_time_ns,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func decisionToModel(e *decisionlog.Entry) *decisionLogModel {
	return &decisionLogModel{
		ID:         e.ID.String(),
		TenantID:   e.TenantID,
		ActorID:    e.ActorID,
		RoleID:     e.RoleID,
		Module:     e.Module,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Allowed:    e.Allowed,
		Decision:   e.Decision,
		Reason:     e.Reason,
		EvalTimeNs: e.EvalTimeNs,
		CreatedAt:  e.CreatedAt,
	}
}

func decisionFromModel(m *decisionLogModel) *decisionlog.Entry {
	lid, _ := id.ParseDecisionLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &decisionlog.Entry{
		ID:         lid,
		TenantID:   m.TenantID,
		ActorID:    m.ActorID,
		RoleID:     m.RoleID,
		Module:     m.Module,
		Action:     m.Action,
		TargetType: m.TargetType,
		TargetID:   m.TargetID,
		Allowed:    m.Allowed,
		Decision:   m.Decision,
		Reason:     m.Reason,
		EvalTimeNs: m.EvalTimeNs,
		CreatedAt:  m.CreatedAt,
	}
}
