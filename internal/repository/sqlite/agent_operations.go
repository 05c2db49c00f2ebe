package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

func (r *sqliteRepository) RegisterAgent(ctx context.Context, a *types.Agent) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO agents (name, capabilities, status, availability_score) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET capabilities = excluded.capabilities, status = excluded.status,
			availability_score = excluded.availability_score`,
		a.Name, toJSON(a.Capabilities), string(a.Status), a.AvailabilityScore)
	if err != nil {
		return mapError("register_agent", err)
	}
	return nil
}

func (r *sqliteRepository) GetAgent(ctx context.Context, name string) (*types.Agent, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT name, capabilities, status, availability_score FROM agents WHERE name = ?`, name)
	return scanAgent(row)
}

func (r *sqliteRepository) ListAgents(ctx context.Context) ([]*types.Agent, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT name, capabilities, status, availability_score FROM agents ORDER BY name ASC`)
	if err != nil {
		return nil, mapError("list_agents", err)
	}
	defer rows.Close()

	var out []*types.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, mapError("list_agents", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *sqliteRepository) UnregisterAgent(ctx context.Context, name string) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM agents WHERE name = ?`, name)
	if err != nil {
		return mapError("unregister_agent", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("unregister_agent", errNotFound("agent", name))
	}
	return nil
}

func (r *sqliteRepository) AssignAgent(ctx context.Context, a *types.AgentAssignment) error {
	now := timeToStr(nowUTC())
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT OR REPLACE INTO agent_assignments (agent_name, branch_id, assigned_at) VALUES (?, ?, ?)`,
		a.AgentName, a.BranchID.String(), now)
	if err != nil {
		return mapError("assign_agent", err)
	}
	a.AssignedAt = strToTime(now)
	return nil
}

func (r *sqliteRepository) UnassignAgent(ctx context.Context, agentName string, branchID uuid.UUID) error {
	res, err := r.q(ctx).ExecContext(ctx, `
		DELETE FROM agent_assignments WHERE agent_name = ? AND branch_id = ?`, agentName, branchID.String())
	if err != nil {
		return mapError("unassign_agent", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("unassign_agent", errNotFound("agent_assignment", agentName))
	}
	return nil
}

func (r *sqliteRepository) ListAgentAssignments(ctx context.Context, branchID uuid.UUID) ([]*types.AgentAssignment, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT agent_name, branch_id, assigned_at FROM agent_assignments WHERE branch_id = ? ORDER BY assigned_at ASC`,
		branchID.String())
	if err != nil {
		return nil, mapError("list_agent_assignments", err)
	}
	defer rows.Close()

	var out []*types.AgentAssignment
	for rows.Next() {
		var a types.AgentAssignment
		var branchIDStr, assignedAt string
		if err := rows.Scan(&a.AgentName, &branchIDStr, &assignedAt); err != nil {
			return nil, mapError("list_agent_assignments", err)
		}
		parsed, err := uuid.Parse(branchIDStr)
		if err != nil {
			return nil, err
		}
		a.BranchID = parsed
		a.AssignedAt = strToTime(assignedAt)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func scanAgent(row rowScanner) (*types.Agent, error) {
	var (
		capabilities, status string
		a                    types.Agent
	)
	if err := row.Scan(&a.Name, &capabilities, &status, &a.AvailabilityScore); err != nil {
		return nil, mapError("get_agent", err)
	}
	a.Capabilities = fromJSONStrings(capabilities)
	a.Status = types.AgentStatus(status)
	return &a, nil
}
