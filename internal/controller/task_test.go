package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctxengine "github.com/ctxforge/taskmcp/internal/context"
	"github.com/ctxforge/taskmcp/internal/task"
	"github.com/ctxforge/taskmcp/internal/testutil"
	"github.com/ctxforge/taskmcp/internal/types"
)

func newTaskController(t *testing.T) (*TaskController, types.Repository) {
	t.Helper()
	cfg := testutil.NewTestConfig(t)
	repo := cfg.SetupTestRepository(t)

	cache, err := ctxengine.NewCache(100, 0)
	require.NoError(t, err)
	resolver := ctxengine.NewResolver(repo, cache)
	delegation := ctxengine.NewDelegationEngine(repo, resolver)
	sync := ctxengine.NewSyncService(repo, resolver, delegation, cfg.Logger)
	lifecycle := task.NewLifecycleService(repo, resolver, sync)

	return NewTaskController(repo, lifecycle), repo
}

func TestTaskControllerCreateRequiresBranchAndTitle(t *testing.T) {
	c, repo := newTaskController(t)
	project := testutil.SeedProject(t, repo, "proj")
	branch := testutil.SeedBranch(t, repo, project.ID, "main")

	env := c.Dispatch(context.Background(), "create", Params{
		"branch_id": branch.ID.String(),
		"title":     "Write docs",
	})
	require.True(t, env.Success)
	taskOut := env.Data["task"].(*types.Task)
	assert.Equal(t, "Write docs", taskOut.Title)
	assert.Equal(t, types.TaskStatusTodo, taskOut.Status)
	assert.Equal(t, types.TaskPriorityMedium, taskOut.Priority)

	env = c.Dispatch(context.Background(), "create", Params{"branch_id": branch.ID.String()})
	require.False(t, env.Success)
	assert.Equal(t, "ValidationError", env.Error.Code)
}

func TestTaskControllerAddDependencyRejectsSelfAndCycles(t *testing.T) {
	c, repo := newTaskController(t)
	project := testutil.SeedProject(t, repo, "proj")
	branch := testutil.SeedBranch(t, repo, project.ID, "main")
	a := testutil.SeedTask(t, repo, branch.ID, "A")
	b := testutil.SeedTask(t, repo, branch.ID, "B")

	env := c.Dispatch(context.Background(), "add_dependency", Params{
		"task_id":       a.ID.String(),
		"depends_on_id": a.ID.String(),
	})
	require.False(t, env.Success)
	assert.Equal(t, "DependencyCycle", env.Error.Code)

	env = c.Dispatch(context.Background(), "add_dependency", Params{
		"task_id":       a.ID.String(),
		"depends_on_id": b.ID.String(),
	})
	require.True(t, env.Success)

	env = c.Dispatch(context.Background(), "add_dependency", Params{
		"task_id":       b.ID.String(),
		"depends_on_id": a.ID.String(),
	})
	require.False(t, env.Success)
	assert.Equal(t, "DependencyCycle", env.Error.Code)
}

func TestTaskControllerAddDependencyRejectsCrossProject(t *testing.T) {
	c, repo := newTaskController(t)
	p1 := testutil.SeedProject(t, repo, "p1")
	p2 := testutil.SeedProject(t, repo, "p2")
	b1 := testutil.SeedBranch(t, repo, p1.ID, "main")
	b2 := testutil.SeedBranch(t, repo, p2.ID, "main")
	a := testutil.SeedTask(t, repo, b1.ID, "A")
	b := testutil.SeedTask(t, repo, b2.ID, "B")

	env := c.Dispatch(context.Background(), "add_dependency", Params{
		"task_id":       a.ID.String(),
		"depends_on_id": b.ID.String(),
	})
	require.False(t, env.Success)
	assert.Equal(t, "ValidationError", env.Error.Code)
}

func TestTaskControllerCompleteBlockedByOpenSubtask(t *testing.T) {
	c, repo := newTaskController(t)
	project := testutil.SeedProject(t, repo, "proj")
	branch := testutil.SeedBranch(t, repo, project.ID, "main")
	a := testutil.SeedTask(t, repo, branch.ID, "A")

	require.NoError(t, repo.CreateSubtask(context.Background(), &types.Subtask{
		TaskID: a.ID,
		Title:  "open subtask",
		Status: types.TaskStatusInProgress,
	}))

	env := c.Dispatch(context.Background(), "complete", Params{
		"task_id":            a.ID.String(),
		"completion_summary": "done",
	})
	require.False(t, env.Success)
	assert.Equal(t, "InvariantViolation", env.Error.Code)
}

func TestTaskControllerUnknownActionIsInvalidAction(t *testing.T) {
	c, _ := newTaskController(t)
	env := c.Dispatch(context.Background(), "not_a_real_action", Params{})
	require.False(t, env.Success)
	assert.Equal(t, "InvalidAction", env.Error.Code)
}
