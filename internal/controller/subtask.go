package controller

import (
	"context"

	"github.com/ctxforge/taskmcp/internal/envelope"
	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	taskpkg "github.com/ctxforge/taskmcp/internal/task"
	"github.com/ctxforge/taskmcp/internal/types"
	"github.com/ctxforge/taskmcp/internal/workflow"
)

// SubtaskController implements manage_subtask.
type SubtaskController struct {
	repo     types.Repository
	subtasks *taskpkg.SubtaskService
}

// NewSubtaskController builds a SubtaskController.
func NewSubtaskController(repo types.Repository, subtasks *taskpkg.SubtaskService) *SubtaskController {
	return &SubtaskController{repo: repo, subtasks: subtasks}
}

// Dispatch runs action against params, returning the response envelope.
func (c *SubtaskController) Dispatch(ctx context.Context, action string, params Params) *envelope.Envelope {
	op := "manage_subtask." + action
	switch action {
	case "create":
		return c.create(ctx, op, params)
	case "get":
		return c.get(ctx, op, params)
	case "list":
		return c.list(ctx, op, params)
	case "update":
		return c.updateProgress(ctx, op, params)
	case "complete":
		return c.complete(ctx, op, params)
	case "delete":
		return c.delete(ctx, op, params)
	default:
		return envelope.Failure(op, apperrors.InvalidAction("manage_subtask", action))
	}
}

func (c *SubtaskController) create(ctx context.Context, op string, params Params) *envelope.Envelope {
	taskID, err := params.uuid(op, "task_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	title, err := params.requireStr(op, "title")
	if err != nil {
		return envelope.Failure(op, err)
	}
	priority := types.TaskPriority(params.str("priority"))
	if priority == "" {
		priority = types.TaskPriorityMedium
	}
	st, err := c.subtasks.Create(ctx, taskID, title, params.str("description"), priority)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{
		"subtask":  st,
		"guidance": workflow.SuggestSubtask(st),
	})
}

func (c *SubtaskController) get(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "subtask_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	st, err := c.repo.GetSubtask(ctx, id)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	return envelope.Success(op, map[string]interface{}{
		"subtask":  st,
		"guidance": workflow.SuggestSubtask(st),
	})
}

func (c *SubtaskController) list(ctx context.Context, op string, params Params) *envelope.Envelope {
	filter := types.SubtaskFilter{TaskID: params.uuidPtr("task_id")}
	if status := params.str("status"); status != "" {
		s := types.TaskStatus(status)
		filter.Status = &s
	}
	subtasks, err := c.repo.ListSubtasks(ctx, filter)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"subtasks": subtasks})
}

func (c *SubtaskController) updateProgress(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "subtask_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	percentage := params.intDefault("progress_percentage", -1)
	if percentage < 0 {
		return envelope.Failure(op, apperrors.ValidationError(op, errProgressRequired))
	}
	st, err := c.subtasks.UpdateProgress(ctx, id, percentage, params.str("progress_notes"), params.str("blockers"))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"subtask": st})
}

func (c *SubtaskController) complete(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "subtask_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	summary, err := params.requireStr(op, "completion_summary")
	if err != nil {
		return envelope.Failure(op, err)
	}
	var insights []types.Insight
	if raw, ok := params["insights_found"].([]interface{}); ok {
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			text, _ := m["text"].(string)
			autoDelegate, _ := m["auto_delegate"].(bool)
			insights = append(insights, types.Insight{Text: text, AutoDelegate: autoDelegate})
		}
	}
	st, err := c.subtasks.Complete(ctx, id, summary, params.str("impact_on_parent"), insights, params.str("challenges_overcome"))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"subtask": st})
}

func (c *SubtaskController) delete(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "subtask_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.subtasks.Delete(ctx, id); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"subtask_id": id})
}
