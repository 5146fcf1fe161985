package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
)

func (a *API) registerModuleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("modules"))

	if err := g.POST("/modules", a.createModule,
		forge.WithSummary("Register module"),
		forge.WithDescription("Registers a capability domain in the actor's school."),
		forge.WithOperationID("createModule"),
		forge.WithRequestSchema(CreateModuleRequest{}),
		forge.WithCreatedResponse(&module.Module{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/modules", a.listModules,
		forge.WithSummary("List modules"),
		forge.WithDescription("Lists modules in the actor's school."),
		forge.WithOperationID("listModules"),
		forge.WithRequestSchema(ListModulesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Module list", ListResponse[*module.Module]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/modules/:moduleId", a.deleteModule,
		forge.WithSummary("Delete module"),
		forge.WithDescription("Deletes a module. Fails while grants still reference it."),
		forge.WithOperationID("deleteModule"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createModule(ctx forge.Context, req *CreateModuleRequest) (*module.Module, error) {
	if req.Name == "" {
		return nil, forge.BadRequest("name is required")
	}

	m, err := a.eng.CreateModule(ctx.Context(), req.Name)
	if err != nil {
		return nil, mapError(ctx, err)
	}

	return m, ctx.JSON(http.StatusCreated, m)
}

func (a *API) listModules(ctx forge.Context, req *ListModulesRequest) (*ListResponse[*module.Module], error) {
	filter := &module.ListFilter{
		Search: req.Search,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}

	modules, total, err := a.eng.ListModules(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(ctx, err)
	}

	resp := &ListResponse[*module.Module]{
		Items:  modules,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) deleteModule(ctx forge.Context, _ *GetModuleRequest) (*struct{}, error) {
	moduleID, err := id.ParseModuleID(ctx.Param("moduleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid module ID: %v", err))
	}

	if err := a.eng.DeleteModule(ctx.Context(), moduleID); err != nil {
		return nil, mapError(ctx, err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}
