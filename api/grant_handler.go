package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/campuskit/prefect"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
)

func (a *API) registerGrantRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("grants"))

	if err := g.POST("/grants", a.createGrant,
		forge.WithSummary("Create grant"),
		forge.WithDescription("Grants one action on a module and target to a user or role."),
		forge.WithOperationID("createGrant"),
		forge.WithRequestSchema(CreateGrantRequest{}),
		forge.WithCreatedResponse(GrantResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/grants/:grantId", a.getGrant,
		forge.WithSummary("Get grant"),
		forge.WithDescription("Returns details of a specific grant."),
		forge.WithOperationID("getGrant"),
		forge.WithResponseSchema(http.StatusOK, "Grant details", GrantResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/grants/:grantId", a.revokeGrant,
		forge.WithSummary("Revoke grant"),
		forge.WithDescription("Revokes a grant. Revocation is physical, not a tombstone."),
		forge.WithOperationID("revokeGrant"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/grants", a.listGrants,
		forge.WithSummary("List grants"),
		forge.WithDescription("Lists grants in the actor's school with optional filters."),
		forge.WithOperationID("listGrants"),
		forge.WithRequestSchema(ListGrantsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Grant list", ListResponse[GrantResponse]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/grants/reconcile", a.reconcile,
		forge.WithSummary("Reconcile grants"),
		forge.WithDescription("Replaces a subject's grant set on one target with the desired set, applied as a single diff."),
		forge.WithOperationID("reconcileGrants"),
		forge.WithRequestSchema(ReconcileRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Reconcile result", ReconcileResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createGrant(ctx forge.Context, req *CreateGrantRequest) (*GrantResponse, error) {
	if req.SubjectID == "" || req.Module == "" || req.Action == "" || req.TargetType == "" {
		return nil, forge.BadRequest("subject_id, module, action, and target_type are required")
	}

	g, err := a.eng.Grant(ctx.Context(), &prefect.GrantRequest{
		Subject:    prefect.Subject{Kind: prefect.SubjectKind(req.SubjectKind), ID: req.SubjectID},
		Module:     req.Module,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
	})
	if err != nil {
		return nil, mapError(ctx, err)
	}

	resp := toGrantResponse(g)
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) getGrant(ctx forge.Context, _ *GetGrantRequest) (*GrantResponse, error) {
	grantID, err := id.ParseGrantID(ctx.Param("grantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid grant ID: %v", err))
	}

	g, err := a.eng.GetGrant(ctx.Context(), grantID)
	if err != nil {
		return nil, mapError(ctx, err)
	}

	resp := toGrantResponse(g)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) revokeGrant(ctx forge.Context, _ *GetGrantRequest) (*struct{}, error) {
	grantID, err := id.ParseGrantID(ctx.Param("grantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid grant ID: %v", err))
	}

	if err := a.eng.RevokeGrant(ctx.Context(), grantID); err != nil {
		return nil, mapError(ctx, err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listGrants(ctx forge.Context, req *ListGrantsRequest) (*ListResponse[GrantResponse], error) {
	filter := &grant.ListFilter{
		UserID:     req.UserID,
		RoleID:     req.RoleID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Action:     req.Action,
		Limit:      defaultLimit(req.Limit),
		Offset:     req.Offset,
	}
	if req.ModuleID != "" {
		mid, err := id.ParseModuleID(req.ModuleID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid module ID: %v", err))
		}
		filter.ModuleID = mid
	}

	grants, total, err := a.eng.ListGrants(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(ctx, err)
	}

	resp := &ListResponse[GrantResponse]{
		Items:  make([]GrantResponse, len(grants)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i, g := range grants {
		resp.Items[i] = *toGrantResponse(g)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) reconcile(ctx forge.Context, req *ReconcileRequest) (*ReconcileResponse, error) {
	if req.SubjectID == "" {
		return nil, forge.BadRequest("subject_id is required")
	}

	desired := make([]prefect.ModuleActions, len(req.Desired))
	for i, d := range req.Desired {
		desired[i] = prefect.ModuleActions{Module: d.Module, Actions: d.Actions}
	}

	summary, grants, err := a.eng.Reconcile(ctx.Context(), &prefect.ReconcileRequest{
		Subject:    prefect.Subject{Kind: prefect.SubjectKind(req.SubjectKind), ID: req.SubjectID},
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Desired:    desired,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return nil, mapError(ctx, err)
	}

	resp := &ReconcileResponse{
		Summary: *summary,
		Grants:  make([]GrantResponse, len(grants)),
	}
	for i, g := range grants {
		resp.Grants[i] = *toGrantResponse(g)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toGrantResponse(g *grant.Grant) *GrantResponse {
	return &GrantResponse{
		ID:         g.ID.String(),
		TenantID:   g.TenantID,
		UserID:     g.UserID,
		RoleID:     g.RoleID,
		SetterID:   g.SetterID,
		ModuleID:   g.ModuleID.String(),
		TargetType: g.TargetType,
		TargetID:   g.TargetID,
		Action:     g.Action,
		Scope:      string(g.Scope),
		Title:      g.Title,
		CreatedAt:  g.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  g.UpdatedAt.Format(time.RFC3339),
	}
}
