// Package decisionlog defines the resolver decision audit Entry entity.
package decisionlog

import (
	"errors"
	"time"

	"github.com/campuskit/prefect/id"
)

// ErrNotFound is returned when a decision log entry cannot be found.
var ErrNotFound = errors.New("decisionlog: not found")

// Entry is a single resolver decision audit record. Deny reasons live here
// and in server logs only; they are never surfaced to denied callers.
type Entry struct {
	ID         id.DecisionLogID `json:"id" db:"id"`
	TenantID   string           `json:"tenant_id" db:"tenant_id"`
	ActorID    string           `json:"actor_id" db:"actor_id"`
	RoleID     string           `json:"role_id,omitempty" db:"role_id"`
	Module     string           `json:"module" db:"module"`
	Action     string           `json:"action" db:"action"`
	TargetType string           `json:"target_type" db:"target_type"`
	TargetID   string           `json:"target_id,omitempty" db:"target_id"`
	Allowed    bool             `json:"allowed" db:"allowed"`
	Decision   string           `json:"decision" db:"decision"`
	Reason     string           `json:"reason,omitempty" db:"reason"`
	EvalTimeNs int64            `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying decision logs.
type QueryFilter struct {
	TenantID   string     `json:"tenant_id,omitempty"`
	ActorID    string     `json:"actor_id,omitempty"`
	Module     string     `json:"module,omitempty"`
	Action     string     `json:"action,omitempty"`
	TargetType string     `json:"target_type,omitempty"`
	TargetID   string     `json:"target_id,omitempty"`
	Allowed    *bool      `json:"allowed,omitempty"`
	After      *time.Time `json:"after,omitempty"`
	Before     *time.Time `json:"before,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
