package middleware

import (
	"net/http"
	"testing"

	"github.com/xraph/forge"

	"github.com/campuskit/prefect"
)

func TestTargetTenantResolvesActorSchool(t *testing.T) {
	actor := prefect.Actor{ID: "user-1", TenantID: "school-1", Active: true}

	targetID, ok := TargetTenant()(nil, actor)
	if !ok || targetID != "school-1" {
		t.Fatalf("TargetTenant = (%q, %v), want (school-1, true)", targetID, ok)
	}
}

func TestTargetNoneStaysUnscoped(t *testing.T) {
	actor := prefect.Actor{ID: "user-1", TenantID: "school-1", Active: true}

	// TargetNone never substitutes the actor's school, so only unscoped
	// grants can satisfy the rule.
	targetID, ok := TargetNone()(nil, actor)
	if !ok || targetID != "" {
		t.Fatalf("TargetNone = (%q, %v), want (empty, true)", targetID, ok)
	}
}

func TestBuildRequestTargetDefaults(t *testing.T) {
	resolve := func(forge.Context) (prefect.Actor, bool) {
		return prefect.Actor{ID: "user-1", TenantID: "school-1", Active: true}, true
	}

	// A school rule with no source checks against the actor's school.
	rule := Rule{Method: http.MethodGet, Module: "assignment"}
	req, errResp := buildRequest(nil, resolve, rule)
	if errResp != nil {
		t.Fatal("expected rule to build")
	}
	if req.Action != "read" || req.TargetType != prefect.TargetTypeSchool || req.TargetID != "school-1" {
		t.Fatalf("unexpected request %+v", req)
	}

	// TargetNone keeps the target empty even for a school rule.
	rule.Target = TargetNone()
	req, errResp = buildRequest(nil, resolve, rule)
	if errResp != nil {
		t.Fatal("expected rule to build")
	}
	if req.TargetID != "" {
		t.Fatalf("expected unscoped check, got target %q", req.TargetID)
	}
}
