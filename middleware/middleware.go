// Package middleware provides HTTP authorization gates for Prefect.
//
// Each protected route declares a Rule stating which module, action, and
// target the route touches. Nothing is inferred from the request shape at
// runtime; the declaration is the single source of truth.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/campuskit/prefect"
)

// Rule declares the authorization requirement of one route.
type Rule struct {
	// Method is the route's HTTP method. When Action is empty the action
	// is derived from it: POST creates, PUT updates, GET reads, DELETE
	// deletes.
	Method string

	// Module is the capability domain the route belongs to.
	Module string

	// Action overrides the method-derived action.
	Action string

	// TargetType defaults to school.
	TargetType string

	// Target locates the target ID in the request. Nil falls back to the
	// actor's own school for school-typed rules and to an unscoped check
	// for any other type.
	Target TargetSource
}

// TargetSource extracts a target ID from the request and the resolved
// actor. The bool reports whether the source could be read at all; an
// empty ID with true means the route deliberately checks without a
// concrete target.
type TargetSource func(ctx forge.Context, actor prefect.Actor) (string, bool)

// TargetParam reads the target ID from a single route parameter.
func TargetParam(name string) TargetSource {
	return func(ctx forge.Context, _ prefect.Actor) (string, bool) {
		v := ctx.Param(name)
		return v, v != ""
	}
}

// TargetKeys reads the target ID from the first non-empty route parameter
// among names.
func TargetKeys(names ...string) TargetSource {
	return func(ctx forge.Context, _ prefect.Actor) (string, bool) {
		for _, name := range names {
			if v := ctx.Param(name); v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// TargetTenant resolves the target to the actor's own school.
func TargetTenant() TargetSource {
	return func(_ forge.Context, actor prefect.Actor) (string, bool) {
		return actor.TenantID, true
	}
}

// TargetNone declares a check without a concrete target: only unscoped
// grants will satisfy it, even for school-typed rules.
func TargetNone() TargetSource {
	return func(forge.Context, prefect.Actor) (string, bool) { return "", true }
}

// ActorResolver extracts the authenticated actor from a request.
type ActorResolver func(ctx forge.Context) (prefect.Actor, bool)

// DefaultActorResolver reads the actor placed on the context by the
// platform's identity middleware, falling back to the Forge user ID.
func DefaultActorResolver(ctx forge.Context) (prefect.Actor, bool) {
	if actor, ok := prefect.ActorFromContext(ctx.Context()); ok {
		return actor, true
	}
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		actor := prefect.Actor{ID: userID, Active: true}
		if s, ok := forge.ScopeFrom(ctx.Context()); ok {
			actor.TenantID = s.OrgID()
		}
		return actor, true
	}
	return prefect.Actor{}, false
}

// methodActions maps HTTP methods to their default action.
var methodActions = map[string]string{
	http.MethodPost:   "create",
	http.MethodPut:    "update",
	http.MethodGet:    "read",
	http.MethodDelete: "delete",
}

// Require enforces a route rule using the default actor resolver.
func Require(eng *prefect.Engine, rule Rule) forge.Middleware {
	return RequireWith(eng, DefaultActorResolver, rule)
}

// RequireWith enforces a route rule with a custom actor resolver.
func RequireWith(eng *prefect.Engine, resolve ActorResolver, rule Rule) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			req, errResp := buildRequest(ctx, resolve, rule)
			if errResp != nil {
				return errResp(ctx)
			}
			if err := eng.Enforce(ctx.Context(), req); err != nil {
				if errors.Is(err, prefect.ErrUnknownAction) || errors.Is(err, prefect.ErrUnknownTargetType) {
					return badRequestResponse(ctx, "invalid authorization rule")
				}
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the rules pass.
func RequireAny(eng *prefect.Engine, rules ...Rule) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			for i := range rules {
				req, errResp := buildRequest(ctx, DefaultActorResolver, rules[i])
				if errResp != nil {
					continue
				}
				result, err := eng.Check(ctx.Context(), req)
				if err == nil && result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// buildRequest turns a rule plus the live request into a check request.
// On failure it returns the response writer to invoke instead.
func buildRequest(ctx forge.Context, resolve ActorResolver, rule Rule) (*prefect.CheckRequest, func(forge.Context) error) {
	action := rule.Action
	if action == "" {
		var ok bool
		if action, ok = methodActions[rule.Method]; !ok {
			msg := "no action for method " + rule.Method
			return nil, func(c forge.Context) error { return badRequestResponse(c, msg) }
		}
	}

	actor, ok := resolve(ctx)
	if !ok {
		return nil, unauthorizedResponse
	}

	targetType := rule.TargetType
	if targetType == "" {
		targetType = prefect.TargetTypeSchool
	}

	source := rule.Target
	if source == nil {
		if targetType == prefect.TargetTypeSchool {
			source = TargetTenant()
		} else {
			source = TargetNone()
		}
	}
	targetID, ok := source(ctx, actor)
	if !ok {
		return nil, func(c forge.Context) error { return badRequestResponse(c, "target id missing from request") }
	}

	return &prefect.CheckRequest{
		Actor:      actor,
		Module:     rule.Module,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	}, nil
}

func unauthorizedResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(http.StatusUnauthorized)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "authentication required"})
}

func badRequestResponse(ctx forge.Context, msg string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(http.StatusBadRequest)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": msg})
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(http.StatusForbidden)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
