package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ctxforge/taskmcp/internal/types"
)

func TestSuggestTask_VariesByStatus(t *testing.T) {
	todo := &types.Task{Status: types.TaskStatusTodo}
	assert.Contains(t, SuggestTask(todo, 0, 0)[0], "action=start")

	blocked := &types.Task{Status: types.TaskStatusBlocked}
	assert.Contains(t, SuggestTask(blocked, 0, 0)[0], "depends_on")

	done := &types.Task{Status: types.TaskStatusDone}
	assert.Contains(t, SuggestTask(done, 0, 0)[0], "reopen")
}

func TestChecklist_FlagsEachGate(t *testing.T) {
	task := &types.Task{}
	items := Checklist(task, 2, 1)
	assert.Len(t, items, 4)
}

func TestChecklist_EmptyWhenAllGatesClear(t *testing.T) {
	ctxID := uuid.New()
	task := &types.Task{CompletionSummary: "done", ContextID: &ctxID}
	items := Checklist(task, 0, 0)
	assert.Empty(t, items)
}

func TestSuggestBranch_NoTasksYet(t *testing.T) {
	branch := &types.Branch{}
	assert.Contains(t, SuggestBranch(branch)[0], "action=create")
}

func TestSuggestBranch_AllComplete(t *testing.T) {
	branch := &types.Branch{TaskCount: 3, CompletedTaskCount: 3}
	assert.Contains(t, SuggestBranch(branch)[0], "all tasks complete")
}
