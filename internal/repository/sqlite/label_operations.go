package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

func (r *sqliteRepository) CreateLabel(ctx context.Context, l *types.Label) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO labels (id, name, color, description) VALUES (?, ?, ?, ?)`,
		l.ID.String(), l.Name, l.Color, l.Description)
	if err != nil {
		return mapError("create_label", err)
	}
	return nil
}

func (r *sqliteRepository) GetLabelByName(ctx context.Context, name string) (*types.Label, error) {
	row := r.q(ctx).QueryRowContext(ctx, `SELECT id, name, color, description FROM labels WHERE name = ?`, name)
	return scanLabel(row)
}

func (r *sqliteRepository) ListLabels(ctx context.Context) ([]*types.Label, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `SELECT id, name, color, description FROM labels ORDER BY name ASC`)
	if err != nil {
		return nil, mapError("list_labels", err)
	}
	defer rows.Close()

	var out []*types.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, mapError("list_labels", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *sqliteRepository) DeleteLabel(ctx context.Context, id uuid.UUID) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id.String())
	if err != nil {
		return mapError("delete_label", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("delete_label", errNotFound("label", id.String()))
	}
	return nil
}

func (r *sqliteRepository) AttachLabel(ctx context.Context, taskID uuid.UUID, labelName string) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT OR IGNORE INTO task_labels (task_id, label_name) VALUES (?, ?)`, taskID.String(), labelName)
	if err != nil {
		return mapError("attach_label", err)
	}
	return nil
}

func (r *sqliteRepository) DetachLabel(ctx context.Context, taskID uuid.UUID, labelName string) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		DELETE FROM task_labels WHERE task_id = ? AND label_name = ?`, taskID.String(), labelName)
	if err != nil {
		return mapError("detach_label", err)
	}
	return nil
}

func scanLabel(row rowScanner) (*types.Label, error) {
	var (
		id string
		l  types.Label
	)
	if err := row.Scan(&id, &l.Name, &l.Color, &l.Description); err != nil {
		return nil, mapError("get_label", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	l.ID = parsed
	return &l, nil
}
