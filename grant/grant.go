// Package grant defines the Grant entity, one permission row, and its
// store interface.
package grant

import (
	"errors"
	"time"

	"github.com/campuskit/prefect/id"
)

// Scope describes who a grant reaches.
type Scope string

const (
	// ScopeSpecific grants to a single user; UserID is set, RoleID empty.
	ScopeSpecific Scope = "specific"

	// ScopeAll grants to every holder of a role; RoleID is set, UserID empty.
	ScopeAll Scope = "all"
)

var (
	// ErrNotFound is returned when a grant cannot be found.
	ErrNotFound = errors.New("grant: not found")

	// ErrDuplicate is returned when an identical six-tuple
	// (subject, module, target type, target id, action, scope) already
	// exists. Stores must surface unique-index violations as this error so
	// concurrent writers cannot produce duplicate rows.
	ErrDuplicate = errors.New("grant: duplicate grant")
)

// Grant allows one action on one module for one subject, optionally scoped
// to a concrete target. An empty TargetID means the grant covers every
// target of TargetType in the tenant.
type Grant struct {
	ID         id.GrantID  `json:"id" db:"id"`
	TenantID   string      `json:"tenant_id" db:"tenant_id"`
	UserID     string      `json:"user_id,omitempty" db:"user_id"`
	RoleID     string      `json:"role_id,omitempty" db:"role_id"`
	SetterID   string      `json:"setter_id" db:"setter_id"`
	ModuleID   id.ModuleID `json:"module_id" db:"module_id"`
	TargetType string      `json:"target_type" db:"target_type"`
	TargetID   string      `json:"target_id,omitempty" db:"target_id"`
	Action     string      `json:"action" db:"action"`
	Scope      Scope       `json:"scope" db:"scope"`
	Title      string      `json:"title" db:"title"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// Key is the unique six-tuple identifying a grant within a tenant.
type Key struct {
	TenantID   string
	UserID     string
	RoleID     string
	ModuleID   id.ModuleID
	TargetType string
	TargetID   string
	Action     string
	Scope      Scope
}

// Key returns the grant's uniqueness key.
func (g *Grant) Key() Key {
	return Key{
		TenantID:   g.TenantID,
		UserID:     g.UserID,
		RoleID:     g.RoleID,
		ModuleID:   g.ModuleID,
		TargetType: g.TargetType,
		TargetID:   g.TargetID,
		Action:     g.Action,
		Scope:      g.Scope,
	}
}

// ListFilter contains filters for listing grants.
type ListFilter struct {
	TenantID   string      `json:"tenant_id,omitempty"`
	UserID     string      `json:"user_id,omitempty"`
	RoleID     string      `json:"role_id,omitempty"`
	ModuleID   id.ModuleID `json:"module_id,omitempty"`
	TargetType string      `json:"target_type,omitempty"`
	TargetID   string      `json:"target_id,omitempty"`
	Action     string      `json:"action,omitempty"`
	Scope      Scope       `json:"scope,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}

// MatchQuery is the resolver predicate. A row matches when it belongs to
// the tenant and module, its target type matches, its action is one of
// Actions, and it addresses the actor either directly (user + specific) or
// through the actor's role (role + all).
//
// Target matching is asymmetric: with a concrete TargetID, rows carrying
// that ID or no ID at all match (an unscoped grant is type-wide); with an
// empty TargetID only unscoped rows match, so the fallback never leaks to
// other IDs when none was requested.
type MatchQuery struct {
	TenantID   string
	UserID     string
	RoleID     string
	ModuleID   id.ModuleID
	TargetType string
	TargetID   string
	Actions    []string
}

// Diff is the minimal change set computed by a reconcile run. Stores apply
// it atomically: deletions first, then creations, then metadata updates.
type Diff struct {
	Delete []id.GrantID
	Create []*Grant
	Update []*Grant
}

// Empty reports whether the diff changes nothing.
func (d *Diff) Empty() bool {
	return len(d.Delete) == 0 && len(d.Create) == 0 && len(d.Update) == 0
}
