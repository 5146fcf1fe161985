package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/campuskit/prefect"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Authorization check"),
		forge.WithDescription("Evaluates whether the actor can perform the action on the module and target."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce authorization"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("authzEnforce"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", CheckResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.ActorID == "" || req.Module == "" || req.Action == "" || req.TargetType == "" {
		return nil, forge.BadRequest("actor_id, module, action, and target_type are required")
	}

	result, err := a.eng.Check(ctx.Context(), toCheckRequest(req))
	if err != nil {
		return nil, mapError(ctx, err)
	}

	resp := toCheckResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.ActorID == "" || req.Module == "" || req.Action == "" || req.TargetType == "" {
		return nil, forge.BadRequest("actor_id, module, action, and target_type are required")
	}

	result, err := a.eng.Check(ctx.Context(), toCheckRequest(req))
	if err != nil {
		return nil, mapError(ctx, err)
	}

	// Deny responses carry no decision code or reason; those feed the
	// decision log, never the caller.
	if !result.Allowed {
		return nil, forge.Forbidden("access denied")
	}

	resp := toCheckResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toCheckRequest(r *CheckRequest) *prefect.CheckRequest {
	return &prefect.CheckRequest{
		Actor: prefect.Actor{
			ID:        r.ActorID,
			TenantID:  r.ActorTenantID,
			RoleID:    r.ActorRoleID,
			RoleTitle: r.ActorRoleTitle,
			Active:    true,
		},
		Module:     r.Module,
		Action:     r.Action,
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
	}
}

func toCheckResponse(r *prefect.CheckResult) *CheckResponse {
	return &CheckResponse{
		Allowed:  r.Allowed,
		Decision: string(r.Decision),
		Reason:   r.Reason,
		MatchedBy: MatchInfo{
			Source:  r.MatchedBy.Source,
			GrantID: r.MatchedBy.GrantID,
			Detail:  r.MatchedBy.Detail,
		},
		EvalTimeNs: r.EvalTimeNs,
	}
}
