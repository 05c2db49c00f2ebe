package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxforge/taskmcp/internal/types"
)

func TestSubtaskCreate_DefaultsToTodo(t *testing.T) {
	repo, _, subsvc := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)

	st, err := subsvc.Create(ctx, task.ID, "step one", "first step", types.TaskPriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusTodo, st.Status)
	assert.Equal(t, 0, st.ProgressPercentage)
}

func TestSubtaskUpdateProgress_RejectsOutOfRange(t *testing.T) {
	repo, _, subsvc := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)
	st, err := subsvc.Create(ctx, task.ID, "step one", "", types.TaskPriorityMedium)
	require.NoError(t, err)

	_, err = subsvc.UpdateProgress(ctx, st.ID, 150, "", "")
	assert.Error(t, err)
}

func TestSubtaskUpdateProgress_MovesTodoToInProgress(t *testing.T) {
	repo, _, subsvc := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)
	st, err := subsvc.Create(ctx, task.ID, "step one", "", types.TaskPriorityMedium)
	require.NoError(t, err)

	updated, err := subsvc.UpdateProgress(ctx, st.ID, 40, "halfway", "")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusInProgress, updated.Status)
	assert.Equal(t, 40, updated.ProgressPercentage)
}

func TestSubtaskComplete_RejectsEmptySummary(t *testing.T) {
	repo, _, subsvc := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)
	st, err := subsvc.Create(ctx, task.ID, "step one", "", types.TaskPriorityMedium)
	require.NoError(t, err)

	_, err = subsvc.Complete(ctx, st.ID, "", "", nil, "")
	assert.Error(t, err)
}

func TestSubtaskComplete_SetsProgressToFull(t *testing.T) {
	repo, _, subsvc := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)
	st, err := subsvc.Create(ctx, task.ID, "step one", "", types.TaskPriorityMedium)
	require.NoError(t, err)

	completed, err := subsvc.Complete(ctx, st.ID, "finished it", "unblocked step two",
		[]types.Insight{{Text: "cache the result", AutoDelegate: true}}, "none")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusDone, completed.Status)
	assert.Equal(t, 100, completed.ProgressPercentage)
}

func TestReadyToComplete_FalseUntilAllSubtasksDone(t *testing.T) {
	repo, _, subsvc := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)
	st, err := subsvc.Create(ctx, task.ID, "step one", "", types.TaskPriorityMedium)
	require.NoError(t, err)

	ready, err := subsvc.ReadyToComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, ready)

	_, err = subsvc.Complete(ctx, st.ID, "done", "", nil, "")
	require.NoError(t, err)

	ready, err = subsvc.ReadyToComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestSubtaskDelete_Succeeds(t *testing.T) {
	repo, _, subsvc := newTestServices(t)
	ctx := context.Background()
	task := seedTask(t, ctx, repo)
	st, err := subsvc.Create(ctx, task.ID, "step one", "", types.TaskPriorityMedium)
	require.NoError(t, err)

	require.NoError(t, subsvc.Delete(ctx, st.ID))
	_, err = repo.GetSubtask(ctx, st.ID)
	assert.Error(t, err)
}
