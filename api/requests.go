package api

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for an authorization check.
type CheckRequest struct {
	ActorID        string `json:"actor_id" description:"Acting user identifier"`
	ActorTenantID  string `json:"actor_tenant_id,omitempty" description:"Actor's school (defaults to the request scope)"`
	ActorRoleID    string `json:"actor_role_id,omitempty" description:"Actor's role identifier"`
	ActorRoleTitle string `json:"actor_role_title,omitempty" description:"Actor's role title"`
	Module         string `json:"module" description:"Module name"`
	Action         string `json:"action" description:"Action name"`
	TargetType     string `json:"target_type" description:"Target type (school, class, ...)"`
	TargetID       string `json:"target_id,omitempty" description:"Target identifier (empty = unscoped)"`
}

// ──────────────────────────────────────────────────
// Grant requests
// ──────────────────────────────────────────────────

// CreateGrantRequest is the body for creating a grant.
type CreateGrantRequest struct {
	SubjectKind string `json:"subject_kind" description:"Subject type (user or role)"`
	SubjectID   string `json:"subject_id" description:"Subject identifier"`
	Module      string `json:"module" description:"Module name"`
	Action      string `json:"action" description:"Action name"`
	TargetType  string `json:"target_type" description:"Target type"`
	TargetID    string `json:"target_id,omitempty" description:"Target identifier (empty = unscoped)"`
}

// GetGrantRequest is the path parameter for getting a grant.
type GetGrantRequest struct {
	GrantID string `path:"grantId" description:"Grant ID"`
}

// ListGrantsRequest holds query parameters for listing grants.
type ListGrantsRequest struct {
	UserID     string `query:"user_id" description:"Filter by user ID"`
	RoleID     string `query:"role_id" description:"Filter by role ID"`
	ModuleID   string `query:"module_id" description:"Filter by module ID"`
	TargetType string `query:"target_type" description:"Filter by target type"`
	TargetID   string `query:"target_id" description:"Filter by target ID"`
	Action     string `query:"action" description:"Filter by action"`
	Limit      int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset     int    `query:"offset" description:"Results to skip"`
}

// ModuleActionsInput names a module and the actions desired on it.
type ModuleActionsInput struct {
	Module  string   `json:"module" description:"Module name"`
	Actions []string `json:"actions" description:"Desired actions"`
}

// ReconcileRequest is the body for reconciling a subject's grant set.
type ReconcileRequest struct {
	SubjectKind string               `json:"subject_kind" description:"Subject type (user or role)"`
	SubjectID   string               `json:"subject_id" description:"Subject identifier"`
	TargetType  string               `json:"target_type,omitempty" description:"Target type (empty = subject's school)"`
	TargetID    string               `json:"target_id,omitempty" description:"Target identifier"`
	Desired     []ModuleActionsInput `json:"desired" description:"Desired grant set per module"`
	Limit       int                  `json:"limit,omitempty" description:"Page size for the returned grants"`
	Offset      int                  `json:"offset,omitempty" description:"Page offset for the returned grants"`
}

// ──────────────────────────────────────────────────
// Module requests
// ──────────────────────────────────────────────────

// CreateModuleRequest is the body for registering a module.
type CreateModuleRequest struct {
	Name string `json:"name" description:"Module name, unique per school"`
}

// GetModuleRequest is the path parameter for a module.
type GetModuleRequest struct {
	ModuleID string `path:"moduleId" description:"Module ID"`
}

// ListModulesRequest holds query parameters for listing modules.
type ListModulesRequest struct {
	Search string `query:"search" description:"Search by name"`
	Limit  int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Decision log requests
// ──────────────────────────────────────────────────

// GetDecisionLogRequest is the path parameter for a decision log entry.
type GetDecisionLogRequest struct {
	LogID string `path:"logId" description:"Decision log entry ID"`
}

// ListDecisionLogsRequest holds query parameters for querying decision logs.
type ListDecisionLogsRequest struct {
	ActorID    string `query:"actor_id" description:"Filter by acting user"`
	Module     string `query:"module" description:"Filter by module"`
	Action     string `query:"action" description:"Filter by action"`
	TargetType string `query:"target_type" description:"Filter by target type"`
	TargetID   string `query:"target_id" description:"Filter by target ID"`
	Allowed    string `query:"allowed" description:"Filter by outcome (true/false)"`
	After      string `query:"after" description:"After timestamp (RFC3339)"`
	Before     string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit      int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset     int    `query:"offset" description:"Results to skip"`
}
