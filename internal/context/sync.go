package context

import (
	"context"

	"go.uber.org/zap"

	"github.com/ctxforge/taskmcp/internal/types"
)

// SyncService updates a task's context after any task or subtask mutation,
// so downstream readers observe current state without an explicit context
// write. A sync failure never fails the triggering mutation: it is logged
// and the caller's transaction still commits (spec §4.7 failure isolation).
type SyncService struct {
	repo       types.Repository
	resolver   *Resolver
	delegation *DelegationEngine
	logger     *zap.Logger
}

// NewSyncService builds a SyncService.
func NewSyncService(repo types.Repository, resolver *Resolver, delegation *DelegationEngine, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{repo: repo, resolver: resolver, delegation: delegation, logger: logger}
}

// OnTaskMutated merges the task's changed fields into its TaskContext. It
// is idempotent: re-running it for the same task produces the same merged
// result.
func (s *SyncService) OnTaskMutated(ctx context.Context, task *types.Task, changed map[string]interface{}) {
	if task.ContextID == nil {
		return
	}
	payload := map[string]interface{}{
		"status":     string(task.Status),
		"updated_at": task.UpdatedAt,
	}
	for k, v := range changed {
		payload[k] = v
	}
	s.mergeTaskContext(ctx, task.ContextID.String(), payload)
}

// OnTaskCompleted additionally merges completion fields, per spec §4.7's
// "on task completion" contract.
func (s *SyncService) OnTaskCompleted(ctx context.Context, task *types.Task) {
	if task.ContextID == nil {
		return
	}
	s.mergeTaskContext(ctx, task.ContextID.String(), map[string]interface{}{
		"status":             string(task.Status),
		"updated_at":         task.UpdatedAt,
		"completion_summary": task.CompletionSummary,
		"testing_notes":      task.TestingNotes,
		"completed_at":       task.UpdatedAt,
	})
}

// OnSubtaskMutated merges a subtasks_progress summary view into the parent
// task's context.
func (s *SyncService) OnSubtaskMutated(ctx context.Context, task *types.Task, subtasks []*types.Subtask) {
	if task.ContextID == nil {
		return
	}
	progress := aggregateProgress(subtasks)
	s.mergeTaskContext(ctx, task.ContextID.String(), map[string]interface{}{
		"subtasks_progress": progress,
	})
}

// OnSubtaskCompleted merges the progress summary and, for every insight
// flagged auto_delegate, emits a delegation request to the project context
// (spec §9 Open Question #3: explicit flag, not prefix-matching).
func (s *SyncService) OnSubtaskCompleted(ctx context.Context, task *types.Task, branch *types.Branch, subtask *types.Subtask, allSubtasks []*types.Subtask) {
	s.OnSubtaskMutated(ctx, task, allSubtasks)

	for _, insight := range subtask.InsightsFound {
		if !insight.AutoDelegate {
			continue
		}
		data := map[string]interface{}{
			"insights": []interface{}{insight.Text},
		}
		_, err := s.delegation.Delegate(ctx, types.LevelTask, task.ID.String(), types.LevelProject,
			branch.ProjectID.String(), data, "auto-delegated insight from subtask "+subtask.ID.String(), true)
		if err != nil {
			s.logger.Warn("failed to auto-delegate subtask insight",
				zap.String("subtask_id", subtask.ID.String()), zap.Error(err))
		}
	}
}

func (s *SyncService) mergeTaskContext(ctx context.Context, taskContextID string, payload map[string]interface{}) {
	if _, err := s.resolver.Update(ctx, types.LevelTask, taskContextID, payload, true); err != nil {
		s.logger.Warn("context sync failed, mutation still committed",
			zap.String("context_id", taskContextID), zap.Error(err))
	}
}

func aggregateProgress(subtasks []*types.Subtask) map[string]interface{} {
	if len(subtasks) == 0 {
		return map[string]interface{}{"average_percentage": 0, "all_done": false, "count": 0}
	}
	total := 0
	allDone := true
	for _, st := range subtasks {
		total += st.ProgressPercentage
		if st.Status != types.TaskStatusDone {
			allDone = false
		}
	}
	return map[string]interface{}{
		"average_percentage": total / len(subtasks),
		"all_done":           allDone,
		"count":              len(subtasks),
	}
}
