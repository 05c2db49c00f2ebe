package controller

import (
	"context"

	"github.com/ctxforge/taskmcp/internal/agentcatalog"
	"github.com/ctxforge/taskmcp/internal/envelope"
	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/types"
)

// AgentController implements manage_agent. Branch-scoped assign/unassign is
// also reachable through manage_git_branch (see BranchController) per
// spec.md's canonical action table listing both tools for the same
// operation; both paths call the same agentcatalog.Service methods so the
// two surfaces can never disagree about assignment state.
type AgentController struct {
	agents *agentcatalog.Service
}

// NewAgentController builds an AgentController.
func NewAgentController(agents *agentcatalog.Service) *AgentController {
	return &AgentController{agents: agents}
}

// Dispatch runs action against params, returning the response envelope.
func (c *AgentController) Dispatch(ctx context.Context, action string, params Params) *envelope.Envelope {
	op := "manage_agent." + action
	switch action {
	case "register":
		return c.register(ctx, op, params)
	case "get":
		return c.get(ctx, op, params)
	case "list":
		return c.list(ctx, op, params)
	case "unregister":
		return c.unregister(ctx, op, params)
	case "assign":
		return c.assign(ctx, op, params)
	case "unassign":
		return c.unassign(ctx, op, params)
	default:
		return envelope.Failure(op, apperrors.InvalidAction("manage_agent", action))
	}
}

func (c *AgentController) register(ctx context.Context, op string, params Params) *envelope.Envelope {
	name, err := params.requireStr(op, "name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	agent := &types.Agent{
		Name:         name,
		Capabilities: params.stringSlice("capabilities"),
		Status:       types.AgentStatus(params.str("status")),
	}
	if err := c.agents.Register(ctx, agent); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"agent": agent})
}

func (c *AgentController) get(ctx context.Context, op string, params Params) *envelope.Envelope {
	name, err := params.requireStr(op, "name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	agent, err := c.agents.Get(ctx, name)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	return envelope.Success(op, map[string]interface{}{"agent": agent})
}

func (c *AgentController) list(ctx context.Context, op string, params Params) *envelope.Envelope {
	agents, err := c.agents.List(ctx)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"agents": agents})
}

func (c *AgentController) unregister(ctx context.Context, op string, params Params) *envelope.Envelope {
	name, err := params.requireStr(op, "name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.agents.Unregister(ctx, name); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"name": name})
}

func (c *AgentController) assign(ctx context.Context, op string, params Params) *envelope.Envelope {
	name, err := params.requireStr(op, "name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	branchID, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	assignment, err := c.agents.Assign(ctx, name, branchID)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"assignment": assignment})
}

func (c *AgentController) unassign(ctx context.Context, op string, params Params) *envelope.Envelope {
	name, err := params.requireStr(op, "name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	branchID, err := params.uuid(op, "branch_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.agents.Unassign(ctx, name, branchID); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"name": name, "branch_id": branchID})
}

// CallAgentController implements the standalone call_agent tool.
type CallAgentController struct {
	agents *agentcatalog.Service
}

// NewCallAgentController builds a CallAgentController.
func NewCallAgentController(agents *agentcatalog.Service) *CallAgentController {
	return &CallAgentController{agents: agents}
}

// Call resolves the named agent descriptor for the caller to act on.
func (c *CallAgentController) Call(ctx context.Context, params Params) *envelope.Envelope {
	op := "call_agent"
	name, err := params.requireStr(op, "name")
	if err != nil {
		return envelope.Failure(op, err)
	}
	agent, err := c.agents.Call(ctx, name)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	return envelope.Success(op, map[string]interface{}{"agent": agent})
}
