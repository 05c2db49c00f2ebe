package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

func (r *sqliteRepository) CreateSubtask(ctx context.Context, s *types.Subtask) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := timeToStr(nowUTC())
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO subtasks (id, task_id, title, description, status, priority, assignees,
			progress_percentage, progress_notes, blockers, completion_summary, impact_on_parent,
			insights_found, challenges_overcome, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.TaskID.String(), s.Title, s.Description, string(s.Status), string(s.Priority),
		toJSON(s.Assignees), s.ProgressPercentage, s.ProgressNotes, s.Blockers, s.CompletionSummary,
		s.ImpactOnParent, toJSON(s.InsightsFound), s.ChallengesOvercome, now, now, nullTimeToStr(s.CompletedAt))
	if err != nil {
		return mapError("create_subtask", err)
	}
	s.CreatedAt, s.UpdatedAt = strToTime(now), strToTime(now)
	return nil
}

func (r *sqliteRepository) GetSubtask(ctx context.Context, id uuid.UUID) (*types.Subtask, error) {
	row := r.q(ctx).QueryRowContext(ctx, subtaskSelectQuery+` WHERE id = ?`, id.String())
	return scanSubtask(row)
}

func (r *sqliteRepository) UpdateSubtask(ctx context.Context, s *types.Subtask) error {
	now := timeToStr(nowUTC())
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE subtasks SET title = ?, description = ?, status = ?, priority = ?, assignees = ?,
			progress_percentage = ?, progress_notes = ?, blockers = ?, completion_summary = ?,
			impact_on_parent = ?, insights_found = ?, challenges_overcome = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`,
		s.Title, s.Description, string(s.Status), string(s.Priority), toJSON(s.Assignees),
		s.ProgressPercentage, s.ProgressNotes, s.Blockers, s.CompletionSummary, s.ImpactOnParent,
		toJSON(s.InsightsFound), s.ChallengesOvercome, now, nullTimeToStr(s.CompletedAt), s.ID.String())
	if err != nil {
		return mapError("update_subtask", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("update_subtask", errNotFound("subtask", s.ID.String()))
	}
	s.UpdatedAt = strToTime(now)
	return nil
}

func (r *sqliteRepository) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM subtasks WHERE id = ?`, id.String())
	if err != nil {
		return mapError("delete_subtask", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("delete_subtask", errNotFound("subtask", id.String()))
	}
	return nil
}

func (r *sqliteRepository) ListSubtasks(ctx context.Context, filter types.SubtaskFilter) ([]*types.Subtask, error) {
	query := subtaskSelectQuery + ` WHERE 1=1`
	var args []interface{}
	if filter.TaskID != nil {
		query += " AND task_id = ?"
		args = append(args, filter.TaskID.String())
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list_subtasks", err)
	}
	defer rows.Close()

	var out []*types.Subtask
	for rows.Next() {
		s, err := scanSubtask(rows)
		if err != nil {
			return nil, mapError("list_subtasks", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const subtaskSelectQuery = `
	SELECT id, task_id, title, description, status, priority, assignees, progress_percentage,
		progress_notes, blockers, completion_summary, impact_on_parent, insights_found,
		challenges_overcome, created_at, updated_at, completed_at
	FROM subtasks`

func scanSubtask(row rowScanner) (*types.Subtask, error) {
	var (
		id, taskID, status, priority, createdAt, updatedAt string
		assignees, insights                                string
		completedAt                                        sql.NullString
		s                                                   types.Subtask
	)
	if err := row.Scan(&id, &taskID, &s.Title, &s.Description, &status, &priority, &assignees,
		&s.ProgressPercentage, &s.ProgressNotes, &s.Blockers, &s.CompletionSummary, &s.ImpactOnParent,
		&insights, &s.ChallengesOvercome, &createdAt, &updatedAt, &completedAt); err != nil {
		return nil, mapError("get_subtask", err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	parsedTask, err := uuid.Parse(taskID)
	if err != nil {
		return nil, err
	}
	s.ID = parsedID
	s.TaskID = parsedTask
	s.Status = types.TaskStatus(status)
	s.Priority = types.TaskPriority(priority)
	s.Assignees = fromJSONStrings(assignees)
	s.InsightsFound = fromJSONInsights(insights)
	s.CreatedAt = strToTime(createdAt)
	s.UpdatedAt = strToTime(updatedAt)
	s.CompletedAt = strToNullTime(completedAt)
	return &s, nil
}
