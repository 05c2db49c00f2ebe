// Package workflow generates deterministic guidance strings — next-action
// hints and checklists — as a pure function of entity state. Guidance is
// never persisted; it is recomputed at response time.
package workflow

import (
	"fmt"

	"github.com/ctxforge/taskmcp/internal/types"
)

// SuggestTask returns next-step hints for a task given its current status
// and whether it has unresolved subtasks/dependencies.
func SuggestTask(task *types.Task, openSubtasks, openDependencies int) []string {
	switch task.Status {
	case types.TaskStatusTodo:
		return []string{"call manage_task with action=start to begin work"}
	case types.TaskStatusBlocked:
		return []string{"inspect depends_on and unblock once every dependency is done, or action=unblock if the blocker has cleared"}
	case types.TaskStatusInProgress:
		hints := []string{"call manage_task with action=submit_for_review when implementation is ready"}
		if openSubtasks > 0 {
			hints = append(hints, fmt.Sprintf("%d subtask(s) still open; consider completing them first", openSubtasks))
		}
		return hints
	case types.TaskStatusReview:
		return []string{"call manage_task with action=start_testing once review feedback is addressed, or action=complete if no testing phase is needed"}
	case types.TaskStatusTesting:
		return []string{"call manage_task with action=complete once testing passes, or action=block if testing surfaces a blocker"}
	case types.TaskStatusDone:
		return []string{"task is complete; action=reopen if further work is needed"}
	case types.TaskStatusCancelled:
		return []string{"task is cancelled; action=reopen to resume it"}
	}
	return nil
}

// Checklist returns the outstanding gates before a task can be completed,
// echoing the completion contract in spec.md §4.4.
func Checklist(task *types.Task, openSubtasks, openDependencies int) []string {
	var items []string
	if task.CompletionSummary == "" {
		items = append(items, "provide a non-empty completion_summary")
	}
	if openSubtasks > 0 {
		items = append(items, fmt.Sprintf("finish %d remaining subtask(s)", openSubtasks))
	}
	if openDependencies > 0 {
		items = append(items, fmt.Sprintf("finish %d remaining dependency task(s)", openDependencies))
	}
	if task.ContextID == nil {
		items = append(items, "a task context will be auto-created on completion")
	}
	return items
}

// SuggestSubtask returns next-step hints for a subtask.
func SuggestSubtask(subtask *types.Subtask) []string {
	switch subtask.Status {
	case types.TaskStatusTodo:
		return []string{"call manage_subtask with action=update to record progress and move it forward"}
	case types.TaskStatusInProgress:
		if subtask.ProgressPercentage >= 80 {
			return []string{"close to done; call manage_subtask with action=complete once finished"}
		}
		return []string{"call manage_subtask with action=update to record progress_percentage"}
	case types.TaskStatusDone:
		return []string{"subtask is complete"}
	}
	return nil
}

// SuggestBranch returns next-step hints for a branch given its progress.
func SuggestBranch(branch *types.Branch) []string {
	if branch.TaskCount == 0 {
		return []string{"no tasks yet; call manage_task with action=create to add the first one"}
	}
	if branch.CompletedTaskCount == branch.TaskCount {
		return []string{"all tasks complete; consider manage_git_branch with action=update to mark the branch completed"}
	}
	remaining := branch.TaskCount - branch.CompletedTaskCount
	return []string{fmt.Sprintf("%d of %d tasks remaining; call manage_task with action=next to find the highest-priority actionable task", remaining, branch.TaskCount)}
}
