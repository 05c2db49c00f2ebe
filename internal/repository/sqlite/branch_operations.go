package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

func (r *sqliteRepository) CreateBranch(ctx context.Context, b *types.Branch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := timeToStr(nowUTC())
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO branches (id, project_id, name, description, priority, status, assigned_agent_id, task_count, completed_task_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.ProjectID.String(), b.Name, b.Description, string(b.Priority), string(b.Status),
		nullString(b.AssignedAgentID), b.TaskCount, b.CompletedTaskCount, now, now)
	if err != nil {
		return mapError("create_branch", err)
	}
	b.CreatedAt, b.UpdatedAt = strToTime(now), strToTime(now)
	return nil
}

func (r *sqliteRepository) GetBranch(ctx context.Context, id uuid.UUID) (*types.Branch, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT id, project_id, name, description, priority, status, assigned_agent_id, task_count, completed_task_count, created_at, updated_at
		FROM branches WHERE id = ?`, id.String())
	return scanBranch(row)
}

func (r *sqliteRepository) UpdateBranch(ctx context.Context, b *types.Branch) error {
	now := timeToStr(nowUTC())
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE branches SET name = ?, description = ?, priority = ?, status = ?, assigned_agent_id = ?,
			task_count = ?, completed_task_count = ?, updated_at = ?
		WHERE id = ?`,
		b.Name, b.Description, string(b.Priority), string(b.Status), nullString(b.AssignedAgentID),
		b.TaskCount, b.CompletedTaskCount, now, b.ID.String())
	if err != nil {
		return mapError("update_branch", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("update_branch", errNotFound("branch", b.ID.String()))
	}
	b.UpdatedAt = strToTime(now)
	return nil
}

func (r *sqliteRepository) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM branches WHERE id = ?`, id.String())
	if err != nil {
		return mapError("delete_branch", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("delete_branch", errNotFound("branch", id.String()))
	}
	_, _ = r.q(ctx).ExecContext(ctx, `DELETE FROM contexts WHERE level = ? AND id = ?`, string(types.LevelBranch), id.String())
	return nil
}

func (r *sqliteRepository) ListBranches(ctx context.Context, filter types.BranchFilter) ([]*types.Branch, error) {
	query := `SELECT id, project_id, name, description, priority, status, assigned_agent_id, task_count, completed_task_count, created_at, updated_at FROM branches WHERE 1=1`
	var args []interface{}
	if filter.ProjectID != nil {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID.String())
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list_branches", err)
	}
	defer rows.Close()

	var out []*types.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, mapError("list_branches", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *sqliteRepository) GetBranchByName(ctx context.Context, projectID uuid.UUID, name string) (*types.Branch, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT id, project_id, name, description, priority, status, assigned_agent_id, task_count, completed_task_count, created_at, updated_at
		FROM branches WHERE project_id = ? AND name = ?`, projectID.String(), name)
	return scanBranch(row)
}

func scanBranch(row rowScanner) (*types.Branch, error) {
	var (
		id, projectID, priority, status, createdAt, updatedAt string
		assignedAgent                                         sql.NullString
		b                                                      types.Branch
	)
	if err := row.Scan(&id, &projectID, &b.Name, &b.Description, &priority, &status,
		&assignedAgent, &b.TaskCount, &b.CompletedTaskCount, &createdAt, &updatedAt); err != nil {
		return nil, mapError("get_branch", err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	parsedProject, err := uuid.Parse(projectID)
	if err != nil {
		return nil, err
	}
	b.ID = parsedID
	b.ProjectID = parsedProject
	b.Priority = types.TaskPriority(priority)
	b.Status = types.BranchStatus(status)
	if assignedAgent.Valid {
		b.AssignedAgentID = &assignedAgent.String
	}
	b.CreatedAt = strToTime(createdAt)
	b.UpdatedAt = strToTime(updatedAt)
	return &b, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
