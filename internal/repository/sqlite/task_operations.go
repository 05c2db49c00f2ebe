package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

func (r *sqliteRepository) CreateTask(ctx context.Context, t *types.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := timeToStr(nowUTC())
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO tasks (id, branch_id, title, description, status, priority, details, estimated_effort,
			due_date, context_id, completion_summary, testing_notes, assignees, labels, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.BranchID.String(), t.Title, t.Description, string(t.Status), string(t.Priority),
		t.Details, string(t.EstimatedEffort), nullTimeToStr(t.DueDate), contextIDString(t.ContextID),
		t.CompletionSummary, t.TestingNotes, toJSON(t.Assignees), toJSON(t.Labels), now, now)
	if err != nil {
		return mapError("create_task", err)
	}
	if err := r.syncTaskDependencies(ctx, t.ID, t.Dependencies); err != nil {
		return mapError("create_task", err)
	}
	t.CreatedAt, t.UpdatedAt = strToTime(now), strToTime(now)
	return nil
}

func (r *sqliteRepository) GetTask(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	row := r.q(ctx).QueryRowContext(ctx, taskSelectQuery+` WHERE id = ?`, id.String())
	t, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	deps, err := r.GetTaskDependencies(ctx, id)
	if err != nil {
		return nil, mapError("get_task", err)
	}
	t.Dependencies = deps
	return t, nil
}

func (r *sqliteRepository) UpdateTask(ctx context.Context, t *types.Task) error {
	now := timeToStr(nowUTC())
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, details = ?, estimated_effort = ?,
			due_date = ?, context_id = ?, completion_summary = ?, testing_notes = ?, assignees = ?, labels = ?,
			updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), t.Details, string(t.EstimatedEffort),
		nullTimeToStr(t.DueDate), contextIDString(t.ContextID), t.CompletionSummary, t.TestingNotes,
		toJSON(t.Assignees), toJSON(t.Labels), now, t.ID.String())
	if err != nil {
		return mapError("update_task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("update_task", errNotFound("task", t.ID.String()))
	}
	if err := r.syncTaskDependencies(ctx, t.ID, t.Dependencies); err != nil {
		return mapError("update_task", err)
	}
	t.UpdatedAt = strToTime(now)
	return nil
}

func (r *sqliteRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return mapError("delete_task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("delete_task", errNotFound("task", id.String()))
	}
	_, _ = r.q(ctx).ExecContext(ctx, `DELETE FROM contexts WHERE level = ? AND id = ?`, string(types.LevelTask), id.String())
	return nil
}

func (r *sqliteRepository) ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	query := taskSelectQuery + ` WHERE 1=1`
	var args []interface{}
	if filter.BranchID != nil {
		query += " AND branch_id = ?"
		args = append(args, filter.BranchID.String())
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		query += " AND priority = ?"
		args = append(args, string(*filter.Priority))
	}
	if filter.Label != nil {
		query += " AND id IN (SELECT task_id FROM task_labels WHERE label_name = ?)"
		args = append(args, *filter.Label)
	}
	if filter.Assignee != nil {
		query += " AND assignees LIKE ?"
		args = append(args, "%\""+*filter.Assignee+"\"%")
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list_tasks", err)
	}
	defer rows.Close()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, mapError("list_tasks", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list_tasks", err)
	}
	for _, t := range out {
		deps, err := r.GetTaskDependencies(ctx, t.ID)
		if err != nil {
			return nil, mapError("list_tasks", err)
		}
		t.Dependencies = deps
	}
	return out, nil
}

// SearchTasks applies a case-insensitive, token-AND substring match over
// title, description, details, and labels, mirroring the inmemory
// implementation's semantics with a SQL LIKE per token instead of an
// in-process scan.
func (r *sqliteRepository) SearchTasks(ctx context.Context, branchID uuid.UUID, tokens []string) ([]*types.Task, error) {
	query := taskSelectQuery + ` WHERE branch_id = ?`
	args := []interface{}{branchID.String()}
	for _, tok := range tokens {
		like := "%" + strings.ToLower(tok) + "%"
		query += " AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(details) LIKE ? OR LOWER(labels) LIKE ?)"
		args = append(args, like, like, like, like)
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("search_tasks", err)
	}
	defer rows.Close()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, mapError("search_tasks", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *sqliteRepository) AddTaskDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT OR IGNORE INTO task_dependencies (task_id, depends_on_id, created_at) VALUES (?, ?, ?)`,
		taskID.String(), dependsOnID.String(), timeToStr(nowUTC()))
	if err != nil {
		return mapError("add_task_dependency", err)
	}
	return nil
}

func (r *sqliteRepository) RemoveTaskDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		DELETE FROM task_dependencies WHERE task_id = ? AND depends_on_id = ?`,
		taskID.String(), dependsOnID.String())
	if err != nil {
		return mapError("remove_task_dependency", err)
	}
	return nil
}

func (r *sqliteRepository) GetTaskDependencies(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT depends_on_id FROM task_dependencies WHERE task_id = ? ORDER BY created_at ASC`, taskID.String())
	if err != nil {
		return nil, mapError("get_task_dependencies", err)
	}
	defer rows.Close()
	return scanUUIDColumn(rows)
}

func (r *sqliteRepository) GetDependentTasks(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT task_id FROM task_dependencies WHERE depends_on_id = ? ORDER BY created_at ASC`, taskID.String())
	if err != nil {
		return nil, mapError("get_dependent_tasks", err)
	}
	defer rows.Close()
	return scanUUIDColumn(rows)
}

func (r *sqliteRepository) ListTaskDependencyEdges(ctx context.Context, projectID uuid.UUID) ([]types.TaskDependencyEdge, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT d.task_id, d.depends_on_id
		FROM task_dependencies d
		JOIN tasks t ON t.id = d.task_id
		JOIN branches b ON b.id = t.branch_id
		WHERE b.project_id = ?`, projectID.String())
	if err != nil {
		return nil, mapError("list_task_dependency_edges", err)
	}
	defer rows.Close()

	var out []types.TaskDependencyEdge
	for rows.Next() {
		var taskID, dependsOnID string
		if err := rows.Scan(&taskID, &dependsOnID); err != nil {
			return nil, mapError("list_task_dependency_edges", err)
		}
		tID, err := uuid.Parse(taskID)
		if err != nil {
			return nil, err
		}
		dID, err := uuid.Parse(dependsOnID)
		if err != nil {
			return nil, err
		}
		out = append(out, types.TaskDependencyEdge{TaskID: tID, DependsOnID: dID})
	}
	return out, rows.Err()
}

// syncTaskDependencies replaces a task's dependency edges with want, used by
// CreateTask/UpdateTask so callers can pass the full desired set rather than
// issuing Add/Remove calls themselves.
func (r *sqliteRepository) syncTaskDependencies(ctx context.Context, taskID uuid.UUID, want []uuid.UUID) error {
	if _, err := r.q(ctx).ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, taskID.String()); err != nil {
		return err
	}
	now := timeToStr(nowUTC())
	for _, dep := range want {
		if _, err := r.q(ctx).ExecContext(ctx, `
			INSERT INTO task_dependencies (task_id, depends_on_id, created_at) VALUES (?, ?, ?)`,
			taskID.String(), dep.String(), now); err != nil {
			return fmt.Errorf("insert dependency %s -> %s: %w", taskID, dep, err)
		}
	}
	return nil
}

func scanUUIDColumn(rows *sql.Rows) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const taskSelectQuery = `
	SELECT id, branch_id, title, description, status, priority, details, estimated_effort,
		due_date, context_id, completion_summary, testing_notes, assignees, labels, created_at, updated_at
	FROM tasks`

func scanTask(row rowScanner) (*types.Task, error) {
	var (
		id, branchID, status, priority, effort, createdAt, updatedAt string
		dueDate, contextID                                           sql.NullString
		assignees, labels                                            string
		t                                                             types.Task
	)
	if err := row.Scan(&id, &branchID, &t.Title, &t.Description, &status, &priority, &t.Details, &effort,
		&dueDate, &contextID, &t.CompletionSummary, &t.TestingNotes, &assignees, &labels, &createdAt, &updatedAt); err != nil {
		return nil, mapError("get_task", err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	parsedBranch, err := uuid.Parse(branchID)
	if err != nil {
		return nil, err
	}
	t.ID = parsedID
	t.BranchID = parsedBranch
	t.Status = types.TaskStatus(status)
	t.Priority = types.TaskPriority(priority)
	t.EstimatedEffort = types.EstimatedEffort(effort)
	t.DueDate = strToNullTime(dueDate)
	if contextID.Valid {
		cid, err := uuid.Parse(contextID.String)
		if err != nil {
			return nil, err
		}
		t.ContextID = &cid
	}
	t.Assignees = fromJSONStrings(assignees)
	t.Labels = fromJSONStrings(labels)
	t.CreatedAt = strToTime(createdAt)
	t.UpdatedAt = strToTime(updatedAt)
	return &t, nil
}

func contextIDString(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
