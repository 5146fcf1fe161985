package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
)

func seedModule(t *testing.T, s *Store, tenantID, name string) *module.Module {
	t.Helper()
	m := &module.Module{
		ID:        id.NewModuleID(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.CreateModule(context.Background(), m); err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	return m
}

func userGrant(moduleID id.ModuleID, userID, action, targetType, targetID string) *grant.Grant {
	now := time.Now().UTC()
	return &grant.Grant{
		ID:         id.NewGrantID(),
		TenantID:   "school-1",
		UserID:     userID,
		SetterID:   "admin-1",
		ModuleID:   moduleID,
		TargetType: targetType,
		TargetID:   targetID,
		Action:     action,
		Scope:      grant.ScopeSpecific,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestGrantUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	mod := seedModule(t, s, "school-1", "assignment")

	g := userGrant(mod.ID, "user-1", "read", "school", "")
	if err := s.CreateGrant(ctx, g); err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}

	dup := userGrant(mod.ID, "user-1", "read", "school", "")
	if err := s.CreateGrant(ctx, dup); !errors.Is(err, grant.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	count, err := s.CountGrants(ctx, &grant.ListFilter{TenantID: "school-1"})
	if err != nil {
		t.Fatalf("CountGrants: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 grant, got %d", count)
	}

	// A different action is a different tuple.
	other := userGrant(mod.ID, "user-1", "update", "school", "")
	if err := s.CreateGrant(ctx, other); err != nil {
		t.Fatalf("CreateGrant different action: %v", err)
	}
}

func TestMatchGrantTargetAsymmetry(t *testing.T) {
	ctx := context.Background()
	s := New()
	mod := seedModule(t, s, "school-1", "assignment")

	// Unscoped grant covers every class.
	unscoped := userGrant(mod.ID, "user-1", "read", "class", "")
	if err := s.CreateGrant(ctx, unscoped); err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	// Scoped grant covers one class only.
	scoped := userGrant(mod.ID, "user-2", "read", "class", "class-7")
	if err := s.CreateGrant(ctx, scoped); err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}

	q := &grant.MatchQuery{
		TenantID:   "school-1",
		UserID:     "user-1",
		ModuleID:   mod.ID,
		TargetType: "class",
		TargetID:   "class-7",
		Actions:    []string{"read"},
	}
	if _, err := s.MatchGrant(ctx, q); err != nil {
		t.Fatalf("expected unscoped grant to match concrete target: %v", err)
	}

	// A concrete-target query for user-2 against another class must miss.
	q.UserID = "user-2"
	q.TargetID = "class-8"
	if _, err := s.MatchGrant(ctx, q); !errors.Is(err, grant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// An empty-target query matches only unscoped rows.
	q.TargetID = ""
	if _, err := s.MatchGrant(ctx, q); !errors.Is(err, grant.ErrNotFound) {
		t.Fatalf("expected scoped grant not to satisfy empty target, got %v", err)
	}
	q.UserID = "user-1"
	if _, err := s.MatchGrant(ctx, q); err != nil {
		t.Fatalf("expected unscoped grant to satisfy empty target: %v", err)
	}
}

func TestMatchGrantSubjectUnion(t *testing.T) {
	ctx := context.Background()
	s := New()
	mod := seedModule(t, s, "school-1", "gradebook")

	roleGrant := userGrant(mod.ID, "", "read", "school", "")
	roleGrant.UserID = ""
	roleGrant.RoleID = "role-teacher"
	roleGrant.Scope = grant.ScopeAll
	if err := s.CreateGrant(ctx, roleGrant); err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}

	// The actor holds the role, so the role row matches.
	q := &grant.MatchQuery{
		TenantID:   "school-1",
		UserID:     "user-9",
		RoleID:     "role-teacher",
		ModuleID:   mod.ID,
		TargetType: "school",
		Actions:    []string{"read"},
	}
	if _, err := s.MatchGrant(ctx, q); err != nil {
		t.Fatalf("expected role grant to match: %v", err)
	}

	// Without the role, nothing matches.
	q.RoleID = "role-student"
	if _, err := s.MatchGrant(ctx, q); !errors.Is(err, grant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyGrantDiffAtomicity(t *testing.T) {
	ctx := context.Background()
	s := New()
	mod := seedModule(t, s, "school-1", "assignment")

	existing := userGrant(mod.ID, "user-1", "read", "school", "")
	if err := s.CreateGrant(ctx, existing); err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}

	// A diff referencing a missing grant must change nothing.
	bad := &grant.Diff{
		Delete: []id.GrantID{id.NewGrantID()},
		Create: []*grant.Grant{userGrant(mod.ID, "user-1", "update", "school", "")},
	}
	if err := s.ApplyGrantDiff(ctx, bad); !errors.Is(err, grant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	count, _ := s.CountGrants(ctx, &grant.ListFilter{TenantID: "school-1"})
	if count != 1 {
		t.Fatalf("expected store untouched after failed diff, got %d grants", count)
	}

	// Replacing read with update in one diff.
	good := &grant.Diff{
		Delete: []id.GrantID{existing.ID},
		Create: []*grant.Grant{userGrant(mod.ID, "user-1", "update", "school", "")},
	}
	if err := s.ApplyGrantDiff(ctx, good); err != nil {
		t.Fatalf("ApplyGrantDiff: %v", err)
	}
	grants, err := s.ListGrants(ctx, &grant.ListFilter{TenantID: "school-1"})
	if err != nil {
		t.Fatalf("ListGrants: %v", err)
	}
	if len(grants) != 1 || grants[0].Action != "update" {
		t.Fatalf("expected single update grant, got %+v", grants)
	}
}

func TestDeleteModuleInUse(t *testing.T) {
	ctx := context.Background()
	s := New()
	mod := seedModule(t, s, "school-1", "assignment")

	if err := s.CreateGrant(ctx, userGrant(mod.ID, "user-1", "read", "school", "")); err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	if err := s.DeleteModule(ctx, mod.ID); !errors.Is(err, module.ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}

	if err := s.DeleteGrantsBySubject(ctx, "school-1", "user-1", ""); err != nil {
		t.Fatalf("DeleteGrantsBySubject: %v", err)
	}
	if err := s.DeleteModule(ctx, mod.ID); err != nil {
		t.Fatalf("DeleteModule after grants removed: %v", err)
	}
}

func TestListGrantsPagination(t *testing.T) {
	ctx := context.Background()
	s := New()
	mod := seedModule(t, s, "school-1", "assignment")

	actions := []string{"create", "read", "update", "delete"}
	for _, a := range actions {
		if err := s.CreateGrant(ctx, userGrant(mod.ID, "user-1", a, "school", "")); err != nil {
			t.Fatalf("CreateGrant %s: %v", a, err)
		}
	}

	page, err := s.ListGrants(ctx, &grant.ListFilter{TenantID: "school-1", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListGrants: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
}
