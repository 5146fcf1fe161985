package mongo

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
	ID              string    `grove:"id,pk"      bson:"_id"`
	TenantID        string    `grove:"tenant_id"  bson:"tenant_id"`
	Name            string    `grove:"name"       bson:"name"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at" bson:"updated_at"`
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

// grantModel stores an empty string for an unscoped target instead of a
// missing field so the compound unique index covers unscoped grants too.
type grantModel struct {
	grove.BaseModel `grove:"table:prefect_grants"`
	ID              string    `grove:"id,pk"       bson:"_id"`
	TenantID        string    `grove:"tenant_id"   bson:"tenant_id"`
	UserID          string    `grove:"user_id"     bson:"user_id"`
	RoleID          string    `grove:"role_id"     bson:"role_id"`
	SetterID        string    `grove:"setter_id"   bson:"setter_id"`
	ModuleID        string    `grove:"module_id"   bson:"module_id"`
	TargetType      string    `grove:"target_type" bson:"target_type"`
	TargetID        string    `grove:"target_id"   bson:"target_id"`
	Action          string    `grove:"action"      bson:"action"`
	Scope           string    `grove:"scope"       bson:"scope"`
	Title           string    `grove:"title"       bson:"title"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"  bson:"updated_at"`
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
	ID              string    `grove:"id,pk"        bson:"_id"`
	TenantID        string    `grove:"tenant_id"    bson:"tenant_id"`
	ActorID         string    `grove:"actor_id"     bson:"actor_id"`
	RoleID          string    `grove:"role_id"      bson:"role_id"`
	Module          string    `grove:"module"       bson:"module"`
	Action          string    `grove:"action"       bson:"action"`
	TargetType      string    `grove:"target_type"  bson:"target_type"`
	TargetID        string    `grove:"target_id"    bson:"target_id"`
	Allowed         bool      `grove:"allowed"      bson:"allowed"`
	Decision        string    `grove:"decision"     bson:"decision"`
	Reason          string    `grove:"reason"       bson:"reason"`
	EvalTimeNs      int64     `grove:"eval_time_ns" bson:"eval_time_ns"`
	CreatedAt       time.Time `grove:"created_at"   bson:"created_at"`
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
