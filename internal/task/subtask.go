package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	ctxengine "github.com/ctxforge/taskmcp/internal/context"
	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/types"
)

// SubtaskService manages the nested subtask lifecycle and the progress
// rollup it drives on the parent task's context (spec §4.5).
type SubtaskService struct {
	repo types.Repository
	sync *ctxengine.SyncService
}

// NewSubtaskService builds a SubtaskService.
func NewSubtaskService(repo types.Repository, sync *ctxengine.SyncService) *SubtaskService {
	return &SubtaskService{repo: repo, sync: sync}
}

// Create adds a subtask under taskID and triggers a progress sync.
func (s *SubtaskService) Create(ctx context.Context, taskID uuid.UUID, title, description string, priority types.TaskPriority) (*types.Subtask, error) {
	st := &types.Subtask{
		TaskID:      taskID,
		Title:       title,
		Description: description,
		Status:      types.TaskStatusTodo,
		Priority:    priority,
	}
	if err := s.repo.CreateSubtask(ctx, st); err != nil {
		return nil, err
	}
	s.notifyMutated(ctx, taskID)
	return st, nil
}

// UpdateProgress records progress_percentage/progress_notes/blockers against
// an in-flight subtask and syncs the parent's rollup.
func (s *SubtaskService) UpdateProgress(ctx context.Context, subtaskID uuid.UUID, percentage int, notes, blockers string) (*types.Subtask, error) {
	if percentage < 0 || percentage > 100 {
		return nil, apperrors.ValidationError("manage_subtask.update", fmt.Errorf("progress_percentage must be between 0 and 100, got %d", percentage))
	}
	st, err := s.repo.GetSubtask(ctx, subtaskID)
	if err != nil {
		return nil, err
	}
	if st.Status == types.TaskStatusDone || st.Status == types.TaskStatusCancelled {
		return nil, apperrors.InvariantViolation("manage_subtask.update",
			fmt.Errorf("cannot update progress on a subtask in terminal status %q", st.Status))
	}
	st.ProgressPercentage = percentage
	st.ProgressNotes = notes
	st.Blockers = blockers
	if st.Status == types.TaskStatusTodo {
		st.Status = types.TaskStatusInProgress
	}
	if err := s.repo.UpdateSubtask(ctx, st); err != nil {
		return nil, err
	}
	s.notifyMutated(ctx, st.TaskID)
	return st, nil
}

// Complete marks a subtask done. Requires a non-empty completion_summary;
// impact_on_parent, insightsFound, and challengesOvercome are optional and
// recorded for the parent's rollup and auto-delegation.
func (s *SubtaskService) Complete(ctx context.Context, subtaskID uuid.UUID, summary, impactOnParent string, insights []types.Insight, challengesOvercome string) (*types.Subtask, error) {
	if summary == "" {
		return nil, apperrors.ValidationError("manage_subtask.complete", fmt.Errorf("completion_summary must be non-empty"))
	}
	st, err := s.repo.GetSubtask(ctx, subtaskID)
	if err != nil {
		return nil, err
	}
	if st.Status == types.TaskStatusDone || st.Status == types.TaskStatusCancelled {
		return nil, apperrors.InvariantViolation("manage_subtask.complete",
			fmt.Errorf("subtask already in terminal status %q", st.Status))
	}

	st.Status = types.TaskStatusDone
	st.ProgressPercentage = 100
	st.CompletionSummary = summary
	st.ImpactOnParent = impactOnParent
	st.InsightsFound = insights
	st.ChallengesOvercome = challengesOvercome
	if err := s.repo.UpdateSubtask(ctx, st); err != nil {
		return nil, err
	}

	task, err := s.repo.GetTask(ctx, st.TaskID)
	if err != nil {
		return nil, err
	}
	branch, err := s.repo.GetBranch(ctx, task.BranchID)
	if err != nil {
		return nil, err
	}
	allSubtasks, err := s.repo.ListSubtasks(ctx, types.SubtaskFilter{TaskID: &st.TaskID})
	if err != nil {
		return nil, err
	}
	s.sync.OnSubtaskCompleted(ctx, task, branch, st, allSubtasks)
	return st, nil
}

// Delete removes a subtask and re-syncs the parent's rollup.
func (s *SubtaskService) Delete(ctx context.Context, subtaskID uuid.UUID) error {
	st, err := s.repo.GetSubtask(ctx, subtaskID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSubtask(ctx, subtaskID); err != nil {
		return err
	}
	s.notifyMutated(ctx, st.TaskID)
	return nil
}

// ReadyToComplete reports whether every subtask under taskID is done — an
// advisory signal surfaced to callers before they attempt manage_task.complete.
func (s *SubtaskService) ReadyToComplete(ctx context.Context, taskID uuid.UUID) (bool, error) {
	subtasks, err := s.repo.ListSubtasks(ctx, types.SubtaskFilter{TaskID: &taskID})
	if err != nil {
		return false, err
	}
	for _, st := range subtasks {
		if st.Status != types.TaskStatusDone {
			return false, nil
		}
	}
	return true, nil
}

func (s *SubtaskService) notifyMutated(ctx context.Context, taskID uuid.UUID) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return
	}
	subtasks, err := s.repo.ListSubtasks(ctx, types.SubtaskFilter{TaskID: &taskID})
	if err != nil {
		return
	}
	s.sync.OnSubtaskMutated(ctx, task, subtasks)
}
