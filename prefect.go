// Package prefect provides a tenant-scoped, fine-grained permission engine
// for multi-tenant school platforms.
//
// Prefect decides, per request, whether an actor (a user, possibly acting
// through a role) may perform an action on a module and target resource,
// where the target is either a whole tenant (school) or a sub-resource such
// as a class. It also reconciles a subject's full grant set against a
// desired state in a single transaction.
//
//	eng, err := prefect.NewEngine(
//	    prefect.WithStore(memStore),
//	    prefect.WithDirectory(dir),
//	)
//	result, err := eng.Check(ctx, &prefect.CheckRequest{
//	    Actor:      actor,
//	    Module:     "assignment",
//	    Action:     "read",
//	    TargetType: prefect.TargetTypeSchool,
//	    TargetID:   "school-1",
//	})
package prefect

// SubjectKind identifies what kind of entity a grant is addressed to.
type SubjectKind string

const (
	// SubjectUser grants to a single user (scope "specific").
	SubjectUser SubjectKind = "user"

	// SubjectRole grants to every holder of a role (scope "all").
	SubjectRole SubjectKind = "role"
)

// Subject is the addressee of a grant: exactly one user or one role.
// Modeling this as a tagged pair makes the user-XOR-role invariant
// structural instead of validated.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// UserSubject returns a Subject addressing a single user.
func UserSubject(userID string) Subject {
	return Subject{Kind: SubjectUser, ID: userID}
}

// RoleSubject returns a Subject addressing all holders of a role.
func RoleSubject(roleID string) Subject {
	return Subject{Kind: SubjectRole, ID: roleID}
}

// Valid reports whether the subject addresses exactly one known kind.
func (s Subject) Valid() bool {
	return s.ID != "" && (s.Kind == SubjectUser || s.Kind == SubjectRole)
}

// Actor is the authenticated identity a check runs for. It is supplied by
// the platform's identity provider; Prefect never issues or verifies
// credentials.
type Actor struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	RoleID    string `json:"role_id"`
	RoleTitle string `json:"role_title"`
	Active    bool   `json:"active"`
}

// Built-in target types. Deployments may extend the set via Config.
const (
	TargetTypeSchool = "school"
	TargetTypeClass  = "class"
)

// WildcardAction is the reserved action that subsumes every other action
// for the same (subject, module, target) at resolution time.
const WildcardAction = "manage-all"

// CheckRequest is the input to an authorization check.
type CheckRequest struct {
	Actor      Actor  `json:"actor"`
	Module     string `json:"module"`
	Action     string `json:"action"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id,omitempty"`
}

// CheckResult is the outcome of an authorization check.
type CheckResult struct {
	Allowed    bool      `json:"allowed"`
	Decision   Decision  `json:"decision"`
	Reason     string    `json:"reason,omitempty"`
	MatchedBy  MatchInfo `json:"matched_by,omitempty"`
	EvalTimeNs int64     `json:"eval_time_ns"`
}

// Decision is the authorization outcome code. Decision codes feed the
// decision log and plugins; they are never returned to denied callers.
type Decision string

const (
	// DecisionAllow means a stored grant matched.
	DecisionAllow Decision = "allow"

	// DecisionAllowSuperAdmin means the actor's role bypasses all checks.
	DecisionAllowSuperAdmin Decision = "allow_super_admin"

	// DecisionDenyNoGrant means no stored grant matched.
	DecisionDenyNoGrant Decision = "deny_no_grant"

	// DecisionDenyUnknownModule means the requested module is not registered.
	DecisionDenyUnknownModule Decision = "deny_unknown_module"
)

// MatchInfo describes what matched during evaluation.
type MatchInfo struct {
	Source  string `json:"source,omitempty"` // "grant" or "super_admin"
	GrantID string `json:"grant_id,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// GrantRequest is the input to Engine.Grant. The setter is resolved from
// the actor on the context, never from the request body.
type GrantRequest struct {
	Subject    Subject `json:"subject"`
	Module     string  `json:"module"`
	Action     string  `json:"action"`
	TargetType string  `json:"target_type"`
	TargetID   string  `json:"target_id,omitempty"`
}

// ModuleActions names a module and the set of actions desired on it.
type ModuleActions struct {
	Module  string   `json:"module"`
	Actions []string `json:"actions"`
}

// ReconcileRequest is the input to Engine.Reconcile: the desired grant set
// for one subject on one target. An empty target defaults to the subject's
// own school.
type ReconcileRequest struct {
	Subject    Subject         `json:"subject"`
	TargetType string          `json:"target_type,omitempty"`
	TargetID   string          `json:"target_id,omitempty"`
	Desired    []ModuleActions `json:"desired"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// ReconcileSummary reports what a reconcile run changed.
type ReconcileSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}
