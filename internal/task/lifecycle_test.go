package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctxengine "github.com/ctxforge/taskmcp/internal/context"
	"github.com/ctxforge/taskmcp/internal/repository/inmemory"
	"github.com/ctxforge/taskmcp/internal/types"
)

func newTestServices(t *testing.T) (types.Repository, *LifecycleService, *SubtaskService) {
	t.Helper()
	repo := inmemory.New()
	cache, err := ctxengine.NewCache(100, 0)
	require.NoError(t, err)
	resolver := ctxengine.NewResolver(repo, cache)
	delegation := ctxengine.NewDelegationEngine(repo, resolver)
	sync := ctxengine.NewSyncService(repo, resolver, delegation, nil)
	return repo, NewLifecycleService(repo, resolver, sync), NewSubtaskService(repo, sync)
}

func seedTask(t *testing.T, ctx context.Context, repo types.Repository) *types.Task {
	t.Helper()
	project := &types.Project{Name: "Alpha"}
	require.NoError(t, repo.CreateProject(ctx, project))
	branch := &types.Branch{ProjectID: project.ID, Name: "main"}
	require.NoError(t, repo.CreateBranch(ctx, branch))
	task := &types.Task{BranchID: branch.ID, Title: "Do the thing", Status: types.TaskStatusTodo}
	require.NoError(t, repo.CreateTask(ctx, task))
	return task
}

func TestTransition_StartMovesTodoToInProgress(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	updated, err := svc.Transition(ctx, task.ID, "start")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusInProgress, updated.Status)
}

func TestTransition_RejectsIllegalFromState(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	_, err := svc.Transition(ctx, task.ID, "submit_for_review")
	assert.Error(t, err, "todo cannot go straight to review")
}

func TestComplete_RejectsEmptySummary(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	_, _, err := svc.Complete(ctx, task.ID, "", "")
	assert.Error(t, err)
}

func TestComplete_RejectsUnfinishedSubtasks(t *testing.T) {
	repo, svc, subsvc := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)
	_, err := subsvc.Create(ctx, task.ID, "step one", "", types.TaskPriorityMedium)
	require.NoError(t, err)

	_, _, err = svc.Complete(ctx, task.ID, "all done", "")
	assert.Error(t, err, "an unfinished subtask must block completion")
}

func TestComplete_RejectsUnfinishedDependency(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)
	dep := seedTask(t, ctx, repo)
	require.NoError(t, repo.AddTaskDependency(ctx, task.ID, dep.ID))

	_, _, err := svc.Complete(ctx, task.ID, "all done", "")
	assert.Error(t, err, "an undone dependency must block completion")
}

func TestComplete_AutoCreatesTaskContext(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	updated, created, err := svc.Complete(ctx, task.ID, "all done", "looks good")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, updated.ContextID)
	assert.Equal(t, types.TaskStatusDone, updated.Status)
}

func TestComplete_RepeatedCallWithSameSummaryIsNoOp(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	first, created, err := svc.Complete(ctx, task.ID, "all done", "looks good")
	require.NoError(t, err)
	assert.True(t, created)

	second, createdAgain, err := svc.Complete(ctx, task.ID, "all done", "looks good")
	require.NoError(t, err, "re-completing with the same summary must be a no-op, not InvariantViolation")
	assert.False(t, createdAgain)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, types.TaskStatusDone, second.Status)
	assert.Equal(t, "all done", second.CompletionSummary)
}

func TestComplete_RejectsCompletingAlreadyDoneWithDifferentSummary(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	_, _, err := svc.Complete(ctx, task.ID, "all done", "")
	require.NoError(t, err)

	_, _, err = svc.Complete(ctx, task.ID, "a different summary", "")
	assert.Error(t, err, "completing an already-done task with a different summary is not the idempotent case")
}

func TestCancel_ThenReopen(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	cancelled, err := svc.Cancel(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCancelled, cancelled.Status)

	reopened, err := svc.Reopen(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusInProgress, reopened.Status)
}

func TestReopen_RejectsNonTerminalState(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	_, err := svc.Reopen(ctx, task.ID)
	assert.Error(t, err, "a todo task is not in a terminal state")
}

func TestRecomputeBranchCounts_TracksCompletion(t *testing.T) {
	repo, svc, _ := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	_, _, err := svc.Complete(ctx, task.ID, "done", "")
	require.NoError(t, err)

	branch, err := repo.GetBranch(ctx, task.BranchID)
	require.NoError(t, err)
	assert.Equal(t, 1, branch.TaskCount)
	assert.Equal(t, 1, branch.CompletedTaskCount)
}
