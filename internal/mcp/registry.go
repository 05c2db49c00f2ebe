package mcp

import (
	"context"
	"encoding/json"

	"github.com/ctxforge/taskmcp/internal/controller"
	"github.com/ctxforge/taskmcp/internal/envelope"
)

// ToolHandler runs one manage_* tool's dispatched action.
type ToolHandler interface {
	Dispatch(ctx context.Context, action string, params controller.Params) *envelope.Envelope
}

// toolHandlerFunc adapts a plain function to ToolHandler.
type toolHandlerFunc func(ctx context.Context, action string, params controller.Params) *envelope.Envelope

func (f toolHandlerFunc) Dispatch(ctx context.Context, action string, params controller.Params) *envelope.Envelope {
	return f(ctx, action, params)
}

var genericSchema = json.RawMessage(`{"type":"object","properties":{"action":{"type":"string"},"arguments":{"type":"object"}},"required":["action"]}`)

var callAgentSchema = json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`)

// Registry is the fixed set of 7 tools spec.md §6 names (six manage_*
// tools plus call_agent), each mapped to its controller's Dispatch method.
type Registry struct {
	handlers map[string]ToolHandler
	order    []string
}

// NewRegistry wires the 6 manage_* controllers plus call_agent into the
// fixed tool table. There is no dynamic registration: the tool set is
// closed by spec.md §6's canonical action table.
func NewRegistry(
	project *controller.ProjectController,
	branch *controller.BranchController,
	task *controller.TaskController,
	subtask *controller.SubtaskController,
	ctxCtrl *controller.ContextController,
	agent *controller.AgentController,
	callAgent *controller.CallAgentController,
) *Registry {
	r := &Registry{handlers: make(map[string]ToolHandler)}
	r.add("manage_project", project)
	r.add("manage_git_branch", branch)
	r.add("manage_task", task)
	r.add("manage_subtask", subtask)
	r.add("manage_context", ctxCtrl)
	r.add("manage_agent", agent)
	r.add("call_agent", toolHandlerFunc(func(ctx context.Context, _ string, params controller.Params) *envelope.Envelope {
		return callAgent.Call(ctx, params)
	}))
	return r
}

func (r *Registry) add(name string, handler ToolHandler) {
	r.handlers[name] = handler
	r.order = append(r.order, name)
}

// Get returns the handler registered for name, or nil.
func (r *Registry) Get(name string) ToolHandler {
	return r.handlers[name]
}

// List returns every tool's definition in registration order.
func (r *Registry) List() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		schema := genericSchema
		if name == "call_agent" {
			schema = callAgentSchema
		}
		defs = append(defs, ToolDefinition{
			Name:        name,
			Description: toolDescription(name),
			InputSchema: schema,
		})
	}
	return defs
}

func toolDescription(name string) string {
	switch name {
	case "manage_project":
		return "Create, inspect, and maintain projects."
	case "manage_git_branch":
		return "Create, inspect, and maintain branches within a project, including agent assignment and statistics."
	case "manage_task":
		return "Create, inspect, transition, and complete tasks, including dependency management and next-task selection."
	case "manage_subtask":
		return "Create, inspect, update progress on, and complete subtasks of a task."
	case "manage_context":
		return "Create, inspect, resolve, and update the four-tier inheritance context hierarchy, including upward delegation."
	case "manage_agent":
		return "Register, inspect, and assign agents to branches."
	case "call_agent":
		return "Resolve an agent descriptor by name."
	default:
		return ""
	}
}
