package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

func (r *sqliteRepository) CreateContext(ctx context.Context, c *types.ContextRecord) error {
	now := timeToStr(nowUTC())
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO contexts (level, id, data, local_overrides, delegation_triggers, inheritance_disabled, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(c.Level), c.ID, toJSON(c.Data), toJSON(c.LocalOverrides), toJSON(c.DelegationTriggers),
		boolToInt(c.InheritanceDisabled), c.Version, now, now)
	if err != nil {
		return mapError("create_context", err)
	}
	c.CreatedAt, c.UpdatedAt = strToTime(now), strToTime(now)
	return nil
}

func (r *sqliteRepository) GetContext(ctx context.Context, level types.Level, id string) (*types.ContextRecord, error) {
	row := r.q(ctx).QueryRowContext(ctx, contextSelectQuery+` WHERE level = ? AND id = ?`, string(level), id)
	return scanContext(row)
}

func (r *sqliteRepository) UpdateContext(ctx context.Context, c *types.ContextRecord) error {
	now := timeToStr(nowUTC())
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE contexts SET data = ?, local_overrides = ?, delegation_triggers = ?, inheritance_disabled = ?,
			version = version + 1, updated_at = ?
		WHERE level = ? AND id = ?`,
		toJSON(c.Data), toJSON(c.LocalOverrides), toJSON(c.DelegationTriggers), boolToInt(c.InheritanceDisabled),
		now, string(c.Level), c.ID)
	if err != nil {
		return mapError("update_context", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("update_context", errNotFound("context", c.ID))
	}
	c.Version++
	c.UpdatedAt = strToTime(now)
	return nil
}

func (r *sqliteRepository) DeleteContext(ctx context.Context, level types.Level, id string) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM contexts WHERE level = ? AND id = ?`, string(level), id)
	if err != nil {
		return mapError("delete_context", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("delete_context", errNotFound("context", id))
	}
	return nil
}

func (r *sqliteRepository) ListContexts(ctx context.Context, filter types.ContextFilter) ([]*types.ContextRecord, error) {
	query := contextSelectQuery + ` WHERE 1=1`
	var args []interface{}
	if filter.Level != nil {
		query += " AND level = ?"
		args = append(args, string(*filter.Level))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list_contexts", err)
	}
	defer rows.Close()

	var out []*types.ContextRecord
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, mapError("list_contexts", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// HasChildContext reports whether deleting (level, id) would orphan a
// context one tier below it: a project context blocks on any branch under
// that project, a branch context blocks on any task under that branch. The
// global and task levels have no children and never block.
func (r *sqliteRepository) HasChildContext(ctx context.Context, level types.Level, id string) (bool, error) {
	var query string
	switch level {
	case types.LevelProject:
		query = `SELECT EXISTS(
			SELECT 1 FROM contexts c
			JOIN branches b ON b.id = c.id
			WHERE c.level = 'branch' AND b.project_id = ?)`
	case types.LevelBranch:
		query = `SELECT EXISTS(
			SELECT 1 FROM contexts c
			JOIN tasks t ON t.id = c.id
			WHERE c.level = 'task' AND t.branch_id = ?)`
	default:
		return false, nil
	}
	var exists int
	if err := r.q(ctx).QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, mapError("has_child_context", err)
	}
	return exists == 1, nil
}

func (r *sqliteRepository) CreateDelegation(ctx context.Context, d *types.ContextDelegation) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := timeToStr(nowUTC())
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO context_delegations (id, source_level, source_id, target_level, target_id, delegated_data,
			reason, auto_delegated, processed, approved, rejected_reason, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), string(d.SourceLevel), d.SourceID, string(d.TargetLevel), d.TargetID,
		toJSON(d.DelegatedData), d.Reason, boolToInt(d.AutoDelegated), boolToInt(d.Processed),
		nullBool(d.Approved), d.RejectedReason, now, nullTimeToStr(d.ProcessedAt))
	if err != nil {
		return mapError("create_delegation", err)
	}
	d.CreatedAt = strToTime(now)
	return nil
}

func (r *sqliteRepository) GetDelegation(ctx context.Context, id uuid.UUID) (*types.ContextDelegation, error) {
	row := r.q(ctx).QueryRowContext(ctx, delegationSelectQuery+` WHERE id = ?`, id.String())
	return scanDelegation(row)
}

func (r *sqliteRepository) UpdateDelegation(ctx context.Context, d *types.ContextDelegation) error {
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE context_delegations SET processed = ?, approved = ?, rejected_reason = ?, processed_at = ?
		WHERE id = ?`,
		boolToInt(d.Processed), nullBool(d.Approved), d.RejectedReason, nullTimeToStr(d.ProcessedAt), d.ID.String())
	if err != nil {
		return mapError("update_delegation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError("update_delegation", errNotFound("delegation", d.ID.String()))
	}
	return nil
}

func (r *sqliteRepository) ListPendingDelegations(ctx context.Context, targetLevel types.Level) ([]*types.ContextDelegation, error) {
	rows, err := r.q(ctx).QueryContext(ctx, delegationSelectQuery+` WHERE target_level = ? AND processed = 0 ORDER BY created_at ASC`, string(targetLevel))
	if err != nil {
		return nil, mapError("list_pending_delegations", err)
	}
	defer rows.Close()

	var out []*types.ContextDelegation
	for rows.Next() {
		d, err := scanDelegation(rows)
		if err != nil {
			return nil, mapError("list_pending_delegations", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const contextSelectQuery = `
	SELECT level, id, data, local_overrides, delegation_triggers, inheritance_disabled, version, created_at, updated_at
	FROM contexts`

func scanContext(row rowScanner) (*types.ContextRecord, error) {
	var (
		level, id, data, localOverrides, delegationTriggers, createdAt, updatedAt string
		inheritanceDisabled                                                      int
		c                                                                        types.ContextRecord
	)
	if err := row.Scan(&level, &id, &data, &localOverrides, &delegationTriggers, &inheritanceDisabled,
		&c.Version, &createdAt, &updatedAt); err != nil {
		return nil, mapError("get_context", err)
	}
	c.Level = types.Level(level)
	c.ID = id
	c.Data = fromJSONMap(data)
	c.LocalOverrides = fromJSONMap(localOverrides)
	c.DelegationTriggers = fromJSONMap(delegationTriggers)
	c.InheritanceDisabled = inheritanceDisabled != 0
	c.CreatedAt = strToTime(createdAt)
	c.UpdatedAt = strToTime(updatedAt)
	return &c, nil
}

const delegationSelectQuery = `
	SELECT id, source_level, source_id, target_level, target_id, delegated_data, reason, auto_delegated,
		processed, approved, rejected_reason, created_at, processed_at
	FROM context_delegations`

func scanDelegation(row rowScanner) (*types.ContextDelegation, error) {
	var (
		id, sourceLevel, targetLevel, createdAt string
		delegatedData                           string
		autoDelegated, processed                int
		approved                                sql.NullInt64
		processedAt                             sql.NullString
		d                                        types.ContextDelegation
	)
	if err := row.Scan(&id, &sourceLevel, &d.SourceID, &targetLevel, &d.TargetID, &delegatedData, &d.Reason,
		&autoDelegated, &processed, &approved, &d.RejectedReason, &createdAt, &processedAt); err != nil {
		return nil, mapError("get_delegation", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	d.ID = parsed
	d.SourceLevel = types.Level(sourceLevel)
	d.TargetLevel = types.Level(targetLevel)
	d.DelegatedData = fromJSONMap(delegatedData)
	d.AutoDelegated = autoDelegated != 0
	d.Processed = processed != 0
	if approved.Valid {
		b := approved.Int64 != 0
		d.Approved = &b
	}
	d.CreatedAt = strToTime(createdAt)
	d.ProcessedAt = strToNullTime(processedAt)
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(boolToInt(*b)), Valid: true}
}
