package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/envelope"
	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	taskpkg "github.com/ctxforge/taskmcp/internal/task"
	"github.com/ctxforge/taskmcp/internal/types"
	"github.com/ctxforge/taskmcp/internal/workflow"
)

var (
	errCrossProjectDependency = errors.New("depends_on_id must belong to the same project as task_id")
	errProgressRequired       = errors.New("progress_percentage is required")
)

// TaskController implements manage_task.
type TaskController struct {
	repo      types.Repository
	lifecycle *taskpkg.LifecycleService
}

// NewTaskController builds a TaskController.
func NewTaskController(repo types.Repository, lifecycle *taskpkg.LifecycleService) *TaskController {
	return &TaskController{repo: repo, lifecycle: lifecycle}
}

// Dispatch runs action against params, returning the response envelope.
func (c *TaskController) Dispatch(ctx context.Context, action string, params Params) *envelope.Envelope {
	op := "manage_task." + action
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
	case "complete":
		return c.complete(ctx, op, params)
	case "next":
		return c.next(ctx, op, params)
	case "search":
		return c.search(ctx, op, params)
	case "add_dependency":
		return c.addDependency(ctx, op, params)
	case "remove_dependency":
		return c.removeDependency(ctx, op, params)
	case "start", "block", "unblock", "submit_for_review", "start_testing", "cancel", "reopen":
		return c.transition(ctx, op, action, params)
	default:
		return envelope.Failure(op, apperrors.InvalidAction("manage_task", action))
	}
}

func (c *TaskController) create(ctx context.Context, op string, params Params) *envelope.Envelope {
	branchID, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	title, err := params.requireStr(op, "title")
	if err != nil {
		return envelope.Failure(op, err)
	}
	t := &types.Task{
		BranchID:        branchID,
		Title:           title,
		Description:     params.str("description"),
		Status:          types.TaskStatusTodo,
		Priority:        types.TaskPriority(params.str("priority")),
		Details:         params.str("details"),
		EstimatedEffort: types.EstimatedEffort(params.str("estimated_effort")),
		Assignees:       params.stringSlice("assignees"),
		Labels:          params.stringSlice("labels"),
	}
	if t.Priority == "" {
		t.Priority = types.TaskPriorityMedium
	}
	for _, dep := range params.stringSlice("dependencies") {
		if depID, err := uuid.Parse(dep); err == nil {
			t.Dependencies = append(t.Dependencies, depID)
		}
	}
	if err := c.repo.CreateTask(ctx, t); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{
		"task":     t,
		"guidance": workflow.SuggestTask(t, 0, len(t.Dependencies)),
	})
}

func (c *TaskController) get(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "task_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	t, err := c.repo.GetTask(ctx, id)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	openSubtasks, openDeps := c.openCounts(ctx, t)
	return envelope.Success(op, map[string]interface{}{
		"task":      t,
		"guidance":  workflow.SuggestTask(t, openSubtasks, openDeps),
		"checklist": workflow.Checklist(t, openSubtasks, openDeps),
	})
}

func (c *TaskController) list(ctx context.Context, op string, params Params) *envelope.Envelope {
	filter := types.TaskFilter{
		BranchID: params.uuidPtr("branch_id"),
		Label:    params.strPtr("label"),
		Assignee: params.strPtr("assignee"),
	}
	if status := params.str("status"); status != "" {
		s := types.TaskStatus(status)
		filter.Status = &s
	}
	if priority := params.str("priority"); priority != "" {
		p := types.TaskPriority(priority)
		filter.Priority = &p
	}
	tasks, err := c.repo.ListTasks(ctx, filter)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"tasks": tasks})
}

func (c *TaskController) update(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "task_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	t, err := c.repo.GetTask(ctx, id)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	if title := params.str("title"); title != "" {
		t.Title = title
	}
	if desc, ok := params["description"]; ok {
		if s, ok := desc.(string); ok {
			t.Description = s
		}
	}
	if priority := params.str("priority"); priority != "" {
		t.Priority = types.TaskPriority(priority)
	}
	if details, ok := params["details"]; ok {
		if s, ok := details.(string); ok {
			t.Details = s
		}
	}
	if effort := params.str("estimated_effort"); effort != "" {
		t.EstimatedEffort = types.EstimatedEffort(effort)
	}
	if assignees, ok := params["assignees"]; ok && assignees != nil {
		t.Assignees = params.stringSlice("assignees")
	}
	if labels, ok := params["labels"]; ok && labels != nil {
		t.Labels = params.stringSlice("labels")
	}
	if err := c.repo.UpdateTask(ctx, t); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"task": t})
}

func (c *TaskController) delete(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "task_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.repo.DeleteTask(ctx, id); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"task_id": id})
}

func (c *TaskController) complete(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "task_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	summary, err := params.requireStr(op, "completion_summary")
	if err != nil {
		return envelope.Failure(op, err)
	}
	t, contextCreated, err := c.lifecycle.Complete(ctx, id, summary, params.str("testing_notes"))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"task": t}).
		WithMetadata(map[string]interface{}{"context_auto_created": contextCreated})
}

func (c *TaskController) transition(ctx context.Context, op, action string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "task_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	var t *types.Task
	switch action {
	case "cancel":
		t, err = c.lifecycle.Cancel(ctx, id)
	case "reopen":
		t, err = c.lifecycle.Reopen(ctx, id)
	case "block":
		t, err = c.lifecycle.Block(ctx, id, params.str("reason"))
	default:
		t, err = c.lifecycle.Transition(ctx, id, action)
	}
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"task": t})
}

func (c *TaskController) next(ctx context.Context, op string, params Params) *envelope.Envelope {
	branchID := params.uuidPtr("branch_id")
	filter := types.TaskFilter{BranchID: branchID}
	tasks, err := c.repo.ListTasks(ctx, filter)
	if err != nil {
		return envelope.Failure(op, err)
	}
	next, ok := taskpkg.NextTask(tasks)
	if !ok {
		return envelope.Success(op, map[string]interface{}{"task": nil})
	}
	return envelope.Success(op, map[string]interface{}{"task": next})
}

func (c *TaskController) search(ctx context.Context, op string, params Params) *envelope.Envelope {
	branchID, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	query, err := params.requireStr(op, "query")
	if err != nil {
		return envelope.Failure(op, err)
	}
	tokens := strings.Fields(query)
	tasks, err := c.repo.SearchTasks(ctx, branchID, tokens)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"tasks": tasks})
}

func (c *TaskController) addDependency(ctx context.Context, op string, params Params) *envelope.Envelope {
	taskID, err := params.uuid(op, "task_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	dependsOnID, err := params.uuid(op, "depends_on_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if taskID == dependsOnID {
		return envelope.Failure(op, apperrors.DependencyCycle(taskID.String(), dependsOnID.String()))
	}

	projectOf := func(id uuid.UUID) (uuid.UUID, error) {
		t, err := c.repo.GetTask(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		b, err := c.repo.GetBranch(ctx, t.BranchID)
		if err != nil {
			return uuid.Nil, err
		}
		return b.ProjectID, nil
	}
	taskProject, err := projectOf(taskID)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	depProject, err := projectOf(dependsOnID)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	if taskProject != depProject {
		return envelope.Failure(op, apperrors.ValidationError(op, errCrossProjectDependency))
	}

	edges, err := c.repo.ListTaskDependencyEdges(ctx, taskProject)
	if err != nil {
		return envelope.Failure(op, err)
	}
	graph := taskpkg.BuildGraph(edgesToTasks(edges))
	if taskpkg.WouldCreateCycle(graph, taskID, dependsOnID) {
		return envelope.Failure(op, apperrors.DependencyCycle(taskID.String(), dependsOnID.String()))
	}

	if err := c.repo.AddTaskDependency(ctx, taskID, dependsOnID); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"task_id": taskID, "depends_on_id": dependsOnID})
}

func (c *TaskController) removeDependency(ctx context.Context, op string, params Params) *envelope.Envelope {
	taskID, err := params.uuid(op, "task_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	dependsOnID, err := params.uuid(op, "depends_on_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.repo.RemoveTaskDependency(ctx, taskID, dependsOnID); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"task_id": taskID, "depends_on_id": dependsOnID})
}

func (c *TaskController) openCounts(ctx context.Context, t *types.Task) (openSubtasks, openDependencies int) {
	subtasks, err := c.repo.ListSubtasks(ctx, types.SubtaskFilter{TaskID: &t.ID})
	if err == nil {
		for _, st := range subtasks {
			if st.Status != types.TaskStatusDone {
				openSubtasks++
			}
		}
	}
	depIDs, err := c.repo.GetTaskDependencies(ctx, t.ID)
	if err == nil {
		for _, depID := range depIDs {
			dep, err := c.repo.GetTask(ctx, depID)
			if err == nil && dep.Status != types.TaskStatusDone {
				openDependencies++
			}
		}
	}
	return openSubtasks, openDependencies
}

func edgesToTasks(edges []types.TaskDependencyEdge) []*types.Task {
	byID := map[uuid.UUID]*types.Task{}
	get := func(id uuid.UUID) *types.Task {
		if t, ok := byID[id]; ok {
			return t
		}
		t := &types.Task{ID: id}
		byID[id] = t
		return t
	}
	for _, e := range edges {
		task := get(e.TaskID)
		task.Dependencies = append(task.Dependencies, e.DependsOnID)
		get(e.DependsOnID)
	}
	tasks := make([]*types.Task, 0, len(byID))
	for _, t := range byID {
		tasks = append(tasks, t)
	}
	return tasks
}
