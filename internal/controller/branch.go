package controller

import (
	"context"

	"github.com/ctxforge/taskmcp/internal/agentcatalog"
	"github.com/ctxforge/taskmcp/internal/envelope"
	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/types"
	"github.com/ctxforge/taskmcp/internal/workflow"
)

// BranchController implements manage_git_branch.
type BranchController struct {
	repo   types.Repository
	agents *agentcatalog.Service
}

// NewBranchController builds a BranchController.
func NewBranchController(repo types.Repository, agents *agentcatalog.Service) *BranchController {
	return &BranchController{repo: repo, agents: agents}
}

// Dispatch runs action against params, returning the response envelope.
func (c *BranchController) Dispatch(ctx context.Context, action string, params Params) *envelope.Envelope {
	op := "manage_git_branch." + action
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
	case "assign_agent":
		return c.assignAgent(ctx, op, params)
	case "unassign_agent":
		return c.unassignAgent(ctx, op, params)
	case "get_statistics":
		return c.getStatistics(ctx, op, params)
	default:
		return envelope.Failure(op, apperrors.InvalidAction("manage_git_branch", action))
	}
}

func (c *BranchController) create(ctx context.Context, op string, params Params) *envelope.Envelope {
	projectID, err := params.uuid(op, "project_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	name, err := params.requireStr(op, "name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	b := &types.Branch{
		ProjectID:   projectID,
		Name:        name,
		Description: params.str("description"),
		Priority:    types.TaskPriority(params.str("priority")),
		Status:      types.BranchStatusActive,
	}
	if b.Priority == "" {
		b.Priority = types.TaskPriorityMedium
	}
	if err := c.repo.CreateBranch(ctx, b); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"branch": b, "guidance": workflow.SuggestBranch(b)})
}

func (c *BranchController) get(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	b, err := c.repo.GetBranch(ctx, id)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	return envelope.Success(op, map[string]interface{}{"branch": b, "guidance": workflow.SuggestBranch(b)})
}

func (c *BranchController) list(ctx context.Context, op string, params Params) *envelope.Envelope {
	filter := types.BranchFilter{ProjectID: params.uuidPtr("project_id")}
	if status := params.str("status"); status != "" {
		bs := types.BranchStatus(status)
		filter.Status = &bs
	}
	branches, err := c.repo.ListBranches(ctx, filter)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"branches": branches})
}

func (c *BranchController) update(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	b, err := c.repo.GetBranch(ctx, id)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	if name := params.str("name"); name != "" {
		b.Name = name
	}
	if desc, ok := params["description"]; ok {
		if s, ok := desc.(string); ok {
			b.Description = s
		}
	}
	if status := params.str("status"); status != "" {
		b.Status = types.BranchStatus(status)
	}
	if priority := params.str("priority"); priority != "" {
		b.Priority = types.TaskPriority(priority)
	}
	if err := c.repo.UpdateBranch(ctx, b); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"branch": b})
}

func (c *BranchController) delete(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.repo.DeleteBranch(ctx, id); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"branch_id": id})
}

func (c *BranchController) assignAgent(ctx context.Context, op string, params Params) *envelope.Envelope {
	branchID, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	agentName, err := params.requireStr(op, "agent_name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	assignment, err := c.agents.Assign(ctx, agentName, branchID)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"assignment": assignment})
}

func (c *BranchController) unassignAgent(ctx context.Context, op string, params Params) *envelope.Envelope {
	branchID, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	agentName, err := params.requireStr(op, "agent_name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.agents.Unassign(ctx, agentName, branchID); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"branch_id": branchID, "agent_name": agentName})
}

// getStatistics always derives from the live agent_assignments join table
// rather than a denormalized column, resolving spec.md §9 Open Question #2.
func (c *BranchController) getStatistics(ctx context.Context, op string, params Params) *envelope.Envelope {
	branchID, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if _, err := c.repo.GetBranch(ctx, branchID); err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	tasks, err := c.repo.ListTasks(ctx, types.TaskFilter{BranchID: &branchID})
	if err != nil {
		return envelope.Failure(op, err)
	}
	assignments, err := c.repo.ListAgentAssignments(ctx, branchID)
	if err != nil {
		return envelope.Failure(op, err)
	}

	stats := types.BranchStatistics{
		BranchID:           branchID,
		TaskCount:          len(tasks),
		TasksByStatus:      map[string]int{},
		TasksByPriority:    map[string]int{},
		AssignedAgentCount: len(assignments),
	}
	for _, t := range tasks {
		stats.TasksByStatus[string(t.Status)]++
		stats.TasksByPriority[string(t.Priority)]++
		if t.Status == types.TaskStatusDone {
			stats.CompletedTaskCount++
		}
	}
	if stats.TaskCount > 0 {
		stats.OverallProgress = float64(stats.CompletedTaskCount) / float64(stats.TaskCount)
	}
	return envelope.Success(op, map[string]interface{}{"statistics": stats})
}
