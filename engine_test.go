package prefect

import (
	"context"
	"errors"
	"testing"

	"github.com/campuskit/prefect/directory"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/module"
	"github.com/campuskit/prefect/store/memory"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store, *directory.Memory) {
	t.Helper()
	s := memory.New()
	dir := directory.NewMemory()
	opts = append([]Option{WithStore(s), WithDirectory(dir)}, opts...)
	eng, err := NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, s, dir
}

// adminCtx carries the administrator actor every mutation runs as.
func adminCtx() context.Context {
	return WithActor(context.Background(), Actor{ID: "admin-1", TenantID: "school-1", Active: true})
}

// seedTenant registers the entities most tests share: one active teacher,
// one role, the school and one class target, and the assignment module.
func seedTenant(t *testing.T, eng *Engine, dir *directory.Memory) {
	t.Helper()
	dir.AddUser(directory.User{ID: "teacher-1", TenantID: "school-1", Active: true})
	dir.AddRole(directory.Role{ID: "role-head", TenantID: "school-1", Title: "head-of-department"})
	dir.AddTarget("school-1", TargetTypeSchool, "school-1")
	dir.AddTarget("school-1", TargetTypeClass, "class-7")
	if _, err := eng.CreateModule(adminCtx(), "assignment"); err != nil {
		t.Fatalf("create module: %v", err)
	}
}

func TestNewEngine_RequiresStore(t *testing.T) {
	if _, err := NewEngine(WithDirectory(directory.NewMemory())); err == nil {
		t.Fatal("expected error when store is missing")
	}
}

func TestNewEngine_RequiresDirectory(t *testing.T) {
	if _, err := NewEngine(WithStore(memory.New())); err == nil {
		t.Fatal("expected error when directory is missing")
	}
}

func TestGrantAndCheck(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	g, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeClass,
		TargetID:   "class-7",
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if g.Scope != grant.ScopeSpecific {
		t.Fatalf("expected specific scope for user subject, got %s", g.Scope)
	}
	if g.Title != "assignment:read@class/class-7" {
		t.Fatalf("unexpected grant title %q", g.Title)
	}

	actor := Actor{ID: "teacher-1", TenantID: "school-1", Active: true}
	result, err := eng.Check(context.Background(), &CheckRequest{
		Actor:      actor,
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeClass,
		TargetID:   "class-7",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed || result.Decision != DecisionAllow {
		t.Fatalf("expected allowed, got %s: %s", result.Decision, result.Reason)
	}
	if result.MatchedBy.Source != "grant" || result.MatchedBy.GrantID != g.ID.String() {
		t.Fatalf("unexpected match info: %+v", result.MatchedBy)
	}

	// A different action on the same target has no grant.
	result, err = eng.Check(context.Background(), &CheckRequest{
		Actor:      actor,
		Module:     "assignment",
		Action:     "update",
		TargetType: TargetTypeClass,
		TargetID:   "class-7",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed || result.Decision != DecisionDenyNoGrant {
		t.Fatalf("expected deny_no_grant, got %s", result.Decision)
	}
}

func TestCheck_UnknownModuleDeniesWithoutError(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	result, err := eng.Check(context.Background(), &CheckRequest{
		Actor:      Actor{ID: "teacher-1", TenantID: "school-1", Active: true},
		Module:     "gradebook",
		Action:     "read",
		TargetType: TargetTypeSchool,
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed || result.Decision != DecisionDenyUnknownModule {
		t.Fatalf("expected deny_unknown_module, got %s: %s", result.Decision, result.Reason)
	}
}

func TestCheck_UnknownVocabularyErrors(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	actor := Actor{ID: "teacher-1", TenantID: "school-1", Active: true}

	_, err := eng.Check(context.Background(), &CheckRequest{
		Actor: actor, Module: "assignment", Action: "approve", TargetType: TargetTypeSchool,
	})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}

	_, err = eng.Check(context.Background(), &CheckRequest{
		Actor: actor, Module: "assignment", Action: "read", TargetType: "district",
	})
	if !errors.Is(err, ErrUnknownTargetType) {
		t.Fatalf("expected ErrUnknownTargetType, got %v", err)
	}
}

func TestCheck_SuperAdminBypass(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	// No module registered and no grants: the role title alone decides.
	result, err := eng.Check(context.Background(), &CheckRequest{
		Actor:      Actor{ID: "root-1", TenantID: "school-1", RoleTitle: "super-admin", Active: true},
		Module:     "assignment",
		Action:     "delete",
		TargetType: TargetTypeSchool,
		TargetID:   "school-1",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed || result.Decision != DecisionAllowSuperAdmin {
		t.Fatalf("expected super-admin allow, got %s: %s", result.Decision, result.Reason)
	}
	if result.MatchedBy.Source != "super_admin" {
		t.Fatalf("unexpected match source %q", result.MatchedBy.Source)
	}
}

func TestCheck_WildcardActionSubsumes(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	if _, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     WildcardAction,
		TargetType: TargetTypeClass,
		TargetID:   "class-7",
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	actor := Actor{ID: "teacher-1", TenantID: "school-1", Active: true}
	for _, action := range []string{"create", "read", "update", "delete"} {
		result, err := eng.Check(context.Background(), &CheckRequest{
			Actor:      actor,
			Module:     "assignment",
			Action:     action,
			TargetType: TargetTypeClass,
			TargetID:   "class-7",
		})
		if err != nil {
			t.Fatalf("check %s: %v", action, err)
		}
		if !result.Allowed {
			t.Fatalf("expected wildcard to cover %s, got %s", action, result.Decision)
		}
	}
}

func TestCheck_UnscopedGrantCoversConcreteTarget(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	// A school grant with no target ID applies school-wide.
	if _, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	actor := Actor{ID: "teacher-1", TenantID: "school-1", Active: true}
	result, err := eng.Check(context.Background(), &CheckRequest{
		Actor:      actor,
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
		TargetID:   "school-1",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected school-wide grant to cover concrete target, got %s", result.Decision)
	}

	// The reverse does not hold: a check with no target ID only accepts
	// unscoped rows, so a class-specific grant stays class-specific.
	if _, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "update",
		TargetType: TargetTypeClass,
		TargetID:   "class-7",
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	result, err = eng.Check(context.Background(), &CheckRequest{
		Actor:      actor,
		Module:     "assignment",
		Action:     "update",
		TargetType: TargetTypeClass,
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected concrete grant not to match an unscoped check")
	}
}

func TestCheck_RoleGrant(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	g, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    RoleSubject("role-head"),
		Module:     "assignment",
		Action:     "update",
		TargetType: TargetTypeSchool,
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if g.Scope != grant.ScopeAll {
		t.Fatalf("expected scope all for role subject, got %s", g.Scope)
	}

	// Any holder of the role passes, regardless of user-level grants.
	result, err := eng.Check(context.Background(), &CheckRequest{
		Actor:      Actor{ID: "teacher-2", TenantID: "school-1", RoleID: "role-head", Active: true},
		Module:     "assignment",
		Action:     "update",
		TargetType: TargetTypeSchool,
		TargetID:   "school-1",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected role grant to allow, got %s: %s", result.Decision, result.Reason)
	}
}

func TestGrant_Validation(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)
	dir.AddUser(directory.User{ID: "teacher-gone", TenantID: "school-1", Active: false})

	cases := []struct {
		name string
		req  GrantRequest
		want error
	}{
		{
			name: "invalid subject",
			req:  GrantRequest{Module: "assignment", Action: "read", TargetType: TargetTypeSchool},
			want: ErrScopeMismatch,
		},
		{
			name: "unknown action",
			req: GrantRequest{
				Subject: UserSubject("teacher-1"), Module: "assignment",
				Action: "approve", TargetType: TargetTypeSchool,
			},
			want: ErrUnknownAction,
		},
		{
			name: "class grant needs a target",
			req: GrantRequest{
				Subject: UserSubject("teacher-1"), Module: "assignment",
				Action: "read", TargetType: TargetTypeClass,
			},
			want: ErrTargetRequired,
		},
		{
			name: "target must exist",
			req: GrantRequest{
				Subject: UserSubject("teacher-1"), Module: "assignment",
				Action: "read", TargetType: TargetTypeClass, TargetID: "class-99",
			},
			want: ErrTargetNotFound,
		},
		{
			name: "subject must exist",
			req: GrantRequest{
				Subject: UserSubject("nobody"), Module: "assignment",
				Action: "read", TargetType: TargetTypeSchool,
			},
			want: ErrSubjectNotFound,
		},
		{
			name: "inactive user",
			req: GrantRequest{
				Subject: UserSubject("teacher-gone"), Module: "assignment",
				Action: "read", TargetType: TargetTypeSchool,
			},
			want: ErrUserInactive,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := eng.Grant(adminCtx(), &tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGrant_Duplicate(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	req := &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeClass,
		TargetID:   "class-7",
	}
	if _, err := eng.Grant(adminCtx(), req); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := eng.Grant(adminCtx(), req); !errors.Is(err, grant.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestGrant_RequiresActor(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	_, err := eng.Grant(context.Background(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
	})
	if !errors.Is(err, ErrActorUnresolved) {
		t.Fatalf("expected ErrActorUnresolved, got %v", err)
	}
}

func TestRevokeGrant(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	g, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := eng.RevokeGrant(adminCtx(), g.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := eng.GetGrant(adminCtx(), g.ID); !errors.Is(err, grant.ErrNotFound) {
		t.Fatalf("expected grant gone, got %v", err)
	}

	result, err := eng.Check(context.Background(), &CheckRequest{
		Actor:      Actor{ID: "teacher-1", TenantID: "school-1", Active: true},
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
		TargetID:   "school-1",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected revoked grant to stop matching")
	}
}

func TestGrantTenantIsolation(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	g, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	// An actor from another school holding the ID sees nothing and cannot
	// revoke the row.
	otherCtx := WithActor(context.Background(), Actor{ID: "admin-x", TenantID: "school-2", Active: true})
	if _, err := eng.GetGrant(otherCtx, g.ID); !errors.Is(err, grant.ErrNotFound) {
		t.Fatalf("expected cross-tenant read to miss, got %v", err)
	}
	if err := eng.RevokeGrant(otherCtx, g.ID); !errors.Is(err, grant.ErrNotFound) {
		t.Fatalf("expected cross-tenant revoke to miss, got %v", err)
	}

	// The owning school still sees the grant untouched.
	if _, err := eng.GetGrant(adminCtx(), g.ID); err != nil {
		t.Fatalf("expected grant to survive, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	// First run on an empty subject creates the whole desired set. The
	// empty target defaults to the actor's school.
	summary, grants, err := eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject: UserSubject("teacher-1"),
		Desired: []ModuleActions{{Module: "assignment", Actions: []string{"read", "create"}}},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Created != 2 || summary.Updated != 0 || summary.Deleted != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	// The page is ordered by module name then action.
	if grants[0].Action != "create" || grants[1].Action != "read" {
		t.Fatalf("unexpected page order: %s, %s", grants[0].Action, grants[1].Action)
	}

	// Second run swaps create for update and refreshes the kept row.
	summary, grants, err = eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject: UserSubject("teacher-1"),
		Desired: []ModuleActions{{Module: "assignment", Actions: []string{"read", "update"}}},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Created != 1 || summary.Updated != 1 || summary.Deleted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	if grants[0].Action != "read" || grants[1].Action != "update" {
		t.Fatalf("unexpected page order: %s, %s", grants[0].Action, grants[1].Action)
	}

	// An empty desired set clears the subject's grants on the module.
	summary, grants, err = eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject: UserSubject("teacher-1"),
		Desired: []ModuleActions{{Module: "assignment"}},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Deleted != 2 || summary.Created != 0 || summary.Updated != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(grants) != 0 {
		t.Fatalf("expected no grants left, got %d", len(grants))
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	req := &ReconcileRequest{
		Subject: UserSubject("teacher-1"),
		Desired: []ModuleActions{{Module: "assignment", Actions: []string{"read", "update"}}},
	}
	if _, _, err := eng.Reconcile(adminCtx(), req); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// Repeating the same desired set changes no rows: kept rows only get
	// their provenance refreshed.
	summary, grants, err := eng.Reconcile(adminCtx(), req)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Created != 0 || summary.Deleted != 0 || summary.Updated != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(grants) != 2 || grants[0].Action != "read" || grants[1].Action != "update" {
		t.Fatalf("expected the same grant set, got %+v", grants)
	}
}

func TestReconcile_RoleSubject(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)
	if _, err := eng.CreateModule(adminCtx(), "event"); err != nil {
		t.Fatalf("create module: %v", err)
	}

	summary, grants, err := eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject: RoleSubject("role-head"),
		Desired: []ModuleActions{{Module: "event", Actions: []string{"read", "update"}}},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Created != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, g := range grants {
		if g.RoleID != "role-head" || g.UserID != "" || g.Scope != grant.ScopeAll {
			t.Fatalf("expected role-scoped grant, got %+v", g)
		}
	}

	// Shrinking the desired set deletes the extra row and keeps read.
	summary, grants, err = eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject: RoleSubject("role-head"),
		Desired: []ModuleActions{{Module: "event", Actions: []string{"read"}}},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Deleted != 1 || summary.Created != 0 || summary.Updated != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(grants) != 1 || grants[0].Action != "read" {
		t.Fatalf("expected only the read grant to remain, got %+v", grants)
	}
}

func TestReconcile_LeavesOtherModulesAlone(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)
	if _, err := eng.CreateModule(adminCtx(), "gradebook"); err != nil {
		t.Fatalf("create module: %v", err)
	}

	if _, _, err := eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject: UserSubject("teacher-1"),
		Desired: []ModuleActions{{Module: "gradebook", Actions: []string{"read"}}},
	}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// A later run naming only assignment must not touch gradebook rows.
	summary, _, err := eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject: UserSubject("teacher-1"),
		Desired: []ModuleActions{{Module: "assignment", Actions: []string{"read"}}},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Created != 1 || summary.Deleted != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	_, total, err := eng.ListGrants(adminCtx(), nil)
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected grants on both modules, got %d", total)
	}
}

func TestReconcile_TargetGivenWholeOrNotAtAll(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	_, _, err := eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject:    UserSubject("teacher-1"),
		TargetType: TargetTypeClass,
		Desired:    []ModuleActions{{Module: "assignment", Actions: []string{"read"}}},
	})
	if !errors.Is(err, ErrTargetIncomplete) {
		t.Fatalf("expected ErrTargetIncomplete, got %v", err)
	}
}

func TestReconcile_UnknownModuleAborts(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	_, _, err := eng.Reconcile(adminCtx(), &ReconcileRequest{
		Subject: UserSubject("teacher-1"),
		Desired: []ModuleActions{
			{Module: "assignment", Actions: []string{"read"}},
			{Module: "gradebook", Actions: []string{"read"}},
		},
	})
	if !errors.Is(err, module.ErrNotFound) {
		t.Fatalf("expected module not found, got %v", err)
	}

	// Nothing changed for the known module either.
	grants, total, err := eng.ListGrants(adminCtx(), nil)
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if total != 0 || len(grants) != 0 {
		t.Fatalf("expected no grants after aborted reconcile, got %d", total)
	}
}

func TestCheck_LogsDecisions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogDecisions = true
	eng, s, dir := newTestEngine(t, WithConfig(cfg))
	seedTenant(t, eng, dir)

	actor := Actor{ID: "teacher-1", TenantID: "school-1", Active: true}
	result, err := eng.Check(context.Background(), &CheckRequest{
		Actor:      actor,
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
		TargetID:   "school-1",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected deny with no grants")
	}

	entries, err := s.ListDecisions(context.Background(), nil)
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.TenantID != "school-1" || e.ActorID != "teacher-1" || e.Allowed {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Decision != string(DecisionDenyNoGrant) {
		t.Fatalf("unexpected decision %q", e.Decision)
	}
}

func TestCheck_NoLogByDefault(t *testing.T) {
	eng, s, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	if _, err := eng.Check(context.Background(), &CheckRequest{
		Actor:      Actor{ID: "teacher-1", TenantID: "school-1", Active: true},
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
	}); err != nil {
		t.Fatalf("check: %v", err)
	}

	entries, err := s.ListDecisions(context.Background(), nil)
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no log entries, got %d", len(entries))
	}
}

func TestEnforce(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	actor := Actor{ID: "teacher-1", TenantID: "school-1", Active: true}
	req := &CheckRequest{
		Actor:      actor,
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
		TargetID:   "school-1",
	}
	if err := eng.Enforce(context.Background(), req); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	if _, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := eng.Enforce(context.Background(), req); err != nil {
		t.Fatalf("enforce after grant: %v", err)
	}
}

func TestModuleLifecycle(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	if _, err := eng.CreateModule(adminCtx(), "assignment"); !errors.Is(err, module.ErrDuplicate) {
		t.Fatalf("expected duplicate module error, got %v", err)
	}

	// The same name is free in another tenant.
	otherCtx := WithActor(context.Background(), Actor{ID: "admin-2", TenantID: "school-2", Active: true})
	if _, err := eng.CreateModule(otherCtx, "assignment"); err != nil {
		t.Fatalf("create module in other tenant: %v", err)
	}

	mods, total, err := eng.ListModules(adminCtx(), nil)
	if err != nil {
		t.Fatalf("list modules: %v", err)
	}
	if total != 1 || len(mods) != 1 {
		t.Fatalf("expected the tenant to see exactly its own module, got %d", total)
	}

	g, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := eng.DeleteModule(adminCtx(), g.ModuleID); !errors.Is(err, module.ErrInUse) {
		t.Fatalf("expected in-use error, got %v", err)
	}
	if err := eng.RevokeGrant(adminCtx(), g.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := eng.DeleteModule(adminCtx(), g.ModuleID); err != nil {
		t.Fatalf("delete module: %v", err)
	}
}

func TestCan(t *testing.T) {
	eng, _, dir := newTestEngine(t)
	seedTenant(t, eng, dir)

	actor := Actor{ID: "teacher-1", TenantID: "school-1", Active: true}
	ok, err := eng.Can(context.Background(), actor, "assignment", "read", TargetTypeSchool, "school-1")
	if err != nil {
		t.Fatalf("can: %v", err)
	}
	if ok {
		t.Fatal("expected false with no grants")
	}

	if _, err := eng.Grant(adminCtx(), &GrantRequest{
		Subject:    UserSubject("teacher-1"),
		Module:     "assignment",
		Action:     "read",
		TargetType: TargetTypeSchool,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	ok, err = eng.Can(context.Background(), actor, "assignment", "read", TargetTypeSchool, "school-1")
	if err != nil {
		t.Fatalf("can: %v", err)
	}
	if !ok {
		t.Fatal("expected true after grant")
	}
}
