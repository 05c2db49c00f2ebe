package controller

import (
	"context"

	"github.com/ctxforge/taskmcp/internal/envelope"
	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/repository/sqlite"
	"github.com/ctxforge/taskmcp/internal/types"
)

// ProjectController implements manage_project.
type ProjectController struct {
	repo types.Repository
}

// NewProjectController builds a ProjectController.
func NewProjectController(repo types.Repository) *ProjectController {
	return &ProjectController{repo: repo}
}

// Dispatch runs action against params, returning the response envelope.
func (c *ProjectController) Dispatch(ctx context.Context, action string, params Params) *envelope.Envelope {
	op := "manage_project." + action
	switch action {
	case "create":
		return c.create(ctx, op, params)
	case "get":
		return c.get(ctx, op, params)
	case "list":
		return c.list(ctx, op, params)
	case "update":
		return c.update(ctx, op, params)
	case "delete":
		return c.delete(ctx, op, params)
	case "health_check":
		return c.healthCheck(ctx, op)
	default:
		return envelope.Failure(op, apperrors.InvalidAction("manage_project", action))
	}
}

func (c *ProjectController) create(ctx context.Context, op string, params Params) *envelope.Envelope {
	name, err := params.requireStr(op, "name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	p := &types.Project{
		UserID:      params.str("user_id"),
		Name:        name,
		Description: params.str("description"),
		Status:      types.ProjectStatusActive,
	}
	if err := c.repo.CreateProject(ctx, p); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"project": p})
}

func (c *ProjectController) get(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "project_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	p, err := c.repo.GetProject(ctx, id)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	return envelope.Success(op, map[string]interface{}{"project": p})
}

func (c *ProjectController) list(ctx context.Context, op string, params Params) *envelope.Envelope {
	projects, err := c.repo.ListProjects(ctx, types.ProjectFilter{})
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"projects": projects})
}

func (c *ProjectController) update(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "project_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	p, err := c.repo.GetProject(ctx, id)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	if name := params.str("name"); name != "" {
		p.Name = name
	}
	if desc, ok := params["description"]; ok {
		if s, ok := desc.(string); ok {
			p.Description = s
		}
	}
	if status := params.str("status"); status != "" {
		p.Status = types.ProjectStatus(status)
	}
	if err := c.repo.UpdateProject(ctx, p); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"project": p})
}

func (c *ProjectController) delete(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "project_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.repo.DeleteProject(ctx, id); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"project_id": id})
}

func (c *ProjectController) healthCheck(ctx context.Context, op string) *envelope.Envelope {
	type healthChecker interface {
		HealthCheck(ctx context.Context) sqlite.HealthStatus
	}
	checker, ok := c.repo.(healthChecker)
	if !ok {
		return envelope.Success(op, map[string]interface{}{"healthy": true, "backend": "in-memory"})
	}
	status := checker.HealthCheck(ctx)
	return envelope.Success(op, map[string]interface{}{"healthy": status.Healthy, "health": status})
}
