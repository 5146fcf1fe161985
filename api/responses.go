package api

import "github.com/campuskit/prefect"

// CheckResponse is the response for an authorization check.
type CheckResponse struct {
	Allowed    bool      `json:"allowed" description:"Whether the request is allowed"`
	Decision   string    `json:"decision" description:"Decision code"`
	Reason     string    `json:"reason,omitempty" description:"Human-readable reason"`
	MatchedBy  MatchInfo `json:"matched_by,omitempty" description:"What matched during evaluation"`
	EvalTimeNs int64     `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// MatchInfo identifies the grant or bypass that matched.
type MatchInfo struct {
	Source  string `json:"source,omitempty" description:"Match source (grant, super_admin)"`
	GrantID string `json:"grant_id,omitempty" description:"Matched grant identifier"`
	Detail  string `json:"detail,omitempty" description:"Match detail"`
}

// ReconcileResponse reports the applied diff and the resulting grant page.
type ReconcileResponse struct {
	Summary prefect.ReconcileSummary `json:"summary" description:"Counts of created, updated, and deleted grants"`
	Grants  []GrantResponse          `json:"grants" description:"Page of the subject's grants after reconciliation"`
}

// GrantResponse is the wire form of a grant.
type GrantResponse struct {
	ID         string `json:"id" description:"Grant ID"`
	TenantID   string `json:"tenant_id" description:"School ID"`
	UserID     string `json:"user_id,omitempty" description:"Granted user (user grants)"`
	RoleID     string `json:"role_id,omitempty" description:"Granted role (role grants)"`
	SetterID   string `json:"setter_id" description:"User who last set the grant"`
	ModuleID   string `json:"module_id" description:"Module ID"`
	TargetType string `json:"target_type" description:"Target type"`
	TargetID   string `json:"target_id,omitempty" description:"Target identifier (empty = unscoped)"`
	Action     string `json:"action" description:"Granted action"`
	Scope      string `json:"scope" description:"Grant scope (specific or all)"`
	Title      string `json:"title,omitempty" description:"Display title"`
	CreatedAt  string `json:"created_at" description:"Creation time (RFC3339)"`
	UpdatedAt  string `json:"updated_at" description:"Last update time (RFC3339)"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
