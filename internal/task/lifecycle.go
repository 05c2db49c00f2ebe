package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	ctxengine "github.com/ctxforge/taskmcp/internal/context"
	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/types"
)

// transitions maps each lifecycle action to the set of states it is legal
// from, per spec §4.4. complete, cancel, and reopen are handled separately
// since their "from" set is everything-except rather than an enumerated list.
var transitions = map[string][]types.TaskStatus{
	"start":             {types.TaskStatusTodo, types.TaskStatusBlocked},
	"block":             {types.TaskStatusInProgress, types.TaskStatusReview, types.TaskStatusTesting},
	"unblock":           {types.TaskStatusBlocked},
	"submit_for_review": {types.TaskStatusInProgress},
	"start_testing":     {types.TaskStatusReview, types.TaskStatusInProgress},
}

var transitionTarget = map[string]types.TaskStatus{
	"start":             types.TaskStatusInProgress,
	"block":             types.TaskStatusBlocked,
	"unblock":           types.TaskStatusInProgress,
	"submit_for_review": types.TaskStatusReview,
	"start_testing":     types.TaskStatusTesting,
}

// LifecycleService drives task status transitions, completion gating, and
// the side effects (branch counters, context sync, cache invalidation)
// every mutation must trigger.
type LifecycleService struct {
	repo     types.Repository
	resolver *ctxengine.Resolver
	sync     *ctxengine.SyncService
}

// NewLifecycleService builds a LifecycleService.
func NewLifecycleService(repo types.Repository, resolver *ctxengine.Resolver, sync *ctxengine.SyncService) *LifecycleService {
	return &LifecycleService{repo: repo, resolver: resolver, sync: sync}
}

// Transition applies a named action (start, block, unblock,
// submit_for_review, start_testing) to taskID, validating the from-state
// and refreshing branch counters plus context sync.
func (s *LifecycleService) Transition(ctx context.Context, taskID uuid.UUID, action string) (*types.Task, error) {
	target, ok := transitionTarget[action]
	if !ok {
		return nil, apperrors.InvalidAction("manage_task", action)
	}
	allowedFrom := transitions[action]

	var result *types.Task
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo types.Repository) error {
		t, err := repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if !statusIn(t.Status, allowedFrom) {
			return apperrors.InvariantViolation(fmt.Sprintf("manage_task.%s", action),
				fmt.Errorf("cannot %s a task in status %q", action, t.Status))
		}
		t.Status = target
		if err := repo.UpdateTask(ctx, t); err != nil {
			return err
		}
		if err := s.recomputeBranchCounts(ctx, repo, t.BranchID); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sync.OnTaskMutated(ctx, result, map[string]interface{}{"action": action})
	return result, nil
}

// Block applies block(reason). The reason is not stored on the task row
// (the domain model has no block-reason column); it is handed to the
// context sync as block_reason after the status change.
func (s *LifecycleService) Block(ctx context.Context, taskID uuid.UUID, reason string) (*types.Task, error) {
	t, err := s.Transition(ctx, taskID, "block")
	if err != nil {
		return nil, err
	}
	s.sync.OnTaskMutated(ctx, t, map[string]interface{}{"block_reason": reason})
	return t, nil
}

// Complete runs the gated complete transition: non-empty summary, every
// subtask done, a TaskContext must exist (auto-created if missing), and
// every dependency must be done. Returns (task, contextAutoCreated, error);
// a gate failure is an *errors.EnhancedError carrying BlockingIDs.
func (s *LifecycleService) Complete(ctx context.Context, taskID uuid.UUID, summary, testingNotes string) (*types.Task, bool, error) {
	if summary == "" {
		return nil, false, apperrors.ValidationError("manage_task.complete", fmt.Errorf("completion_summary must be non-empty"))
	}

	var (
		result         *types.Task
		contextCreated bool
		alreadyDone    bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo types.Repository) error {
		t, err := repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if t.Status == types.TaskStatusDone && t.CompletionSummary == summary {
			result = t
			alreadyDone = true
			return nil
		}
		if t.Status == types.TaskStatusDone || t.Status == types.TaskStatusCancelled {
			return apperrors.InvariantViolation("manage_task.complete",
				fmt.Errorf("task already in terminal status %q", t.Status))
		}

		subtasks, err := repo.ListSubtasks(ctx, types.SubtaskFilter{TaskID: &taskID})
		if err != nil {
			return err
		}
		var blockingSubtasks []string
		for _, st := range subtasks {
			if st.Status != types.TaskStatusDone {
				blockingSubtasks = append(blockingSubtasks, st.ID.String())
			}
		}
		if len(blockingSubtasks) > 0 {
			return apperrors.InvariantViolation("manage_task.complete",
				fmt.Errorf("task has %d unfinished subtask(s)", len(blockingSubtasks)), blockingSubtasks...)
		}

		depIDs, err := repo.GetTaskDependencies(ctx, taskID)
		if err != nil {
			return err
		}
		var blockingDeps []string
		for _, depID := range depIDs {
			dep, err := repo.GetTask(ctx, depID)
			if err != nil {
				continue
			}
			if dep.Status != types.TaskStatusDone {
				blockingDeps = append(blockingDeps, dep.ID.String())
			}
		}
		if len(blockingDeps) > 0 {
			return apperrors.InvariantViolation("manage_task.complete",
				fmt.Errorf("task has %d unfinished dependency task(s)", len(blockingDeps)), blockingDeps...)
		}

		if t.ContextID == nil {
			rec, err := s.resolver.Create(ctx, types.LevelTask, t.ID.String(), map[string]interface{}{})
			if err != nil {
				return fmt.Errorf("auto-create task context: %w", err)
			}
			ctxID, err := uuid.Parse(rec.ID)
			if err != nil {
				return err
			}
			t.ContextID = &ctxID
			contextCreated = true
		}

		t.Status = types.TaskStatusDone
		t.CompletionSummary = summary
		t.TestingNotes = testingNotes
		if err := repo.UpdateTask(ctx, t); err != nil {
			return err
		}
		if err := s.recomputeBranchCounts(ctx, repo, t.BranchID); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if alreadyDone {
		return result, false, nil
	}
	s.sync.OnTaskCompleted(ctx, result)
	return result, contextCreated, nil
}

// Cancel moves any non-terminal task to cancelled.
func (s *LifecycleService) Cancel(ctx context.Context, taskID uuid.UUID) (*types.Task, error) {
	var result *types.Task
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo types.Repository) error {
		t, err := repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if t.Status == types.TaskStatusDone || t.Status == types.TaskStatusCancelled {
			return apperrors.InvariantViolation("manage_task.cancel",
				fmt.Errorf("task already in terminal status %q", t.Status))
		}
		t.Status = types.TaskStatusCancelled
		if err := repo.UpdateTask(ctx, t); err != nil {
			return err
		}
		if err := s.recomputeBranchCounts(ctx, repo, t.BranchID); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sync.OnTaskMutated(ctx, result, map[string]interface{}{"action": "cancel"})
	return result, nil
}

// Reopen moves a done or cancelled task back to in_progress.
func (s *LifecycleService) Reopen(ctx context.Context, taskID uuid.UUID) (*types.Task, error) {
	var result *types.Task
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo types.Repository) error {
		t, err := repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if t.Status != types.TaskStatusDone && t.Status != types.TaskStatusCancelled {
			return apperrors.InvariantViolation("manage_task.reopen",
				fmt.Errorf("cannot reopen task in status %q", t.Status))
		}
		t.Status = types.TaskStatusInProgress
		if err := repo.UpdateTask(ctx, t); err != nil {
			return err
		}
		if err := s.recomputeBranchCounts(ctx, repo, t.BranchID); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sync.OnTaskMutated(ctx, result, map[string]interface{}{"action": "reopen"})
	return result, nil
}

// recomputeBranchCounts refreshes task_count/completed_task_count on the
// owning branch, per spec §4.4's "side effects of every mutation".
func (s *LifecycleService) recomputeBranchCounts(ctx context.Context, repo types.Repository, branchID uuid.UUID) error {
	branch, err := repo.GetBranch(ctx, branchID)
	if err != nil {
		return err
	}
	tasks, err := repo.ListTasks(ctx, types.TaskFilter{BranchID: &branchID})
	if err != nil {
		return err
	}
	completed := 0
	for _, t := range tasks {
		if t.Status == types.TaskStatusDone {
			completed++
		}
	}
	branch.TaskCount = len(tasks)
	branch.CompletedTaskCount = completed
	return repo.UpdateBranch(ctx, branch)
}

func statusIn(status types.TaskStatus, set []types.TaskStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
