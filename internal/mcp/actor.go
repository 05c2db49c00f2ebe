package mcp

import (
	"go.uber.org/zap"

	"github.com/ctxforge/taskmcp/internal/controller"
	"github.com/ctxforge/taskmcp/internal/validation"
)

// readOnlyActions names every (tool, action) pair that never mutates
// state; everything else dispatched through tools/call is a write and
// gets the actor logged for audit per spec.md §6/SPEC_FULL.md §3.1.
var readOnlyActions = map[string]bool{
	"manage_project.get":                 true,
	"manage_project.list":                true,
	"manage_project.health_check":        true,
	"manage_git_branch.get":              true,
	"manage_git_branch.list":             true,
	"manage_git_branch.get_statistics":   true,
	"manage_task.get":                    true,
	"manage_task.list":                   true,
	"manage_task.next":                   true,
	"manage_task.search":                 true,
	"manage_subtask.get":                 true,
	"manage_subtask.list":                true,
	"manage_context.get":                 true,
	"manage_context.list":                true,
	"manage_context.resolve":             true,
	"manage_context.pending_delegations": true,
	"manage_agent.get":                   true,
	"manage_agent.list":                  true,
	"call_agent.":                        true,
}

// entityIDKeys lists the envelope data keys, in priority order, that
// identify the entity a write touched.
var entityIDKeys = []string{
	"task_id", "subtask_id", "branch_id", "project_id", "delegation_id", "id", "agent_id",
}

// resolveActor applies spec.md §6's actor fallback: the request's own
// "actor" argument if present and non-empty, else the server's
// configured default (the --actor CLI flag / DEFAULT_USER_ID).
func resolveActor(args controller.Params, defaultActor string) string {
	if actor, ok := args["actor"].(string); ok && actor != "" {
		return actor
	}
	return defaultActor
}

func isReadOnly(tool, action string) bool {
	return readOnlyActions[tool+"."+action]
}

func entityIDOf(data map[string]interface{}) interface{} {
	for _, key := range entityIDKeys {
		if v, ok := data[key]; ok {
			return v
		}
	}
	return nil
}

// auditLog records a write's actor, operation, and entity id at Info
// level, the audit trail spec.md §6 requires for every mutation.
func auditLog(logger *zap.Logger, validator *validation.InputValidator, tool, action, actor string, operationID string, data map[string]interface{}) {
	if isReadOnly(tool, action) {
		return
	}
	fields := []zap.Field{
		zap.String("operation_id", operationID),
		zap.String("operation", tool+"."+action),
		zap.String("actor", actor),
	}
	if err := validator.ValidateActor(actor); err != nil {
		fields = append(fields, zap.Error(err))
		logger.Warn("write with invalid actor", fields...)
		return
	}
	if id := entityIDOf(data); id != nil {
		fields = append(fields, zap.Any("entity_id", id))
	}
	logger.Info("audited write", fields...)
}
