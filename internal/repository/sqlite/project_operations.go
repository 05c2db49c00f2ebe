package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

func (r *sqliteRepository) CreateProject(ctx context.Context, p *types.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := timeToStr(nowUTC())
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO projects (id, user_id, name, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.UserID, p.Name, p.Description, string(p.Status), now, now)
	if err != nil {
		return mapError("create_project", err)
	}
	p.CreatedAt, p.UpdatedAt = strToTime(now), strToTime(now)
	return nil
}

func (r *sqliteRepository) GetProject(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT id, user_id, name, description, status, created_at, updated_at
		FROM projects WHERE id = ?`, id.String())
	return scanProject(row)
}

func (r *sqliteRepository) UpdateProject(ctx context.Context, p *types.Project) error {
	now := timeToStr(nowUTC())
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, string(p.Status), now, p.ID.String())
	if err != nil {
		return mapError("update_project", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("update_project", errNotFound("project", p.ID.String()))
	}
	p.UpdatedAt = strToTime(now)
	return nil
}

func (r *sqliteRepository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	if err != nil {
		return mapError("delete_project", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("delete_project", errNotFound("project", id.String()))
	}
	_, _ = r.q(ctx).ExecContext(ctx, `DELETE FROM contexts WHERE level = ? AND id = ?`, string(types.LevelProject), id.String())
	return nil
}

func (r *sqliteRepository) ListProjects(ctx context.Context, filter types.ProjectFilter) ([]*types.Project, error) {
	query := `SELECT id, user_id, name, description, status, created_at, updated_at FROM projects WHERE 1=1`
	var args []interface{}
	if filter.UserID != nil {
		query += " AND user_id = ?"
		args = append(args, *filter.UserID)
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list_projects", err)
	}
	defer rows.Close()

	var out []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, mapError("list_projects", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *sqliteRepository) GetProjectByName(ctx context.Context, userID, name string) (*types.Project, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT id, user_id, name, description, status, created_at, updated_at
		FROM projects WHERE user_id = ? AND name = ?`, userID, name)
	return scanProject(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*types.Project, error) {
	var (
		id, status, createdAt, updatedAt string
		p                                types.Project
	)
	if err := row.Scan(&id, &p.UserID, &p.Name, &p.Description, &status, &createdAt, &updatedAt); err != nil {
		return nil, mapError("get_project", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	p.ID = parsed
	p.Status = types.ProjectStatus(status)
	p.CreatedAt = strToTime(createdAt)
	p.UpdatedAt = strToTime(updatedAt)
	return &p, nil
}
