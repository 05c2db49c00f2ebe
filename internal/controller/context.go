package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	ctxengine "github.com/ctxforge/taskmcp/internal/context"
	"github.com/ctxforge/taskmcp/internal/envelope"
	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/types"
)

// ContextController implements manage_context.
type ContextController struct {
	resolver   *ctxengine.Resolver
	delegation *ctxengine.DelegationEngine
}

// NewContextController builds a ContextController.
func NewContextController(resolver *ctxengine.Resolver, delegation *ctxengine.DelegationEngine) *ContextController {
	return &ContextController{resolver: resolver, delegation: delegation}
}

// Dispatch runs action against params, returning the response envelope.
func (c *ContextController) Dispatch(ctx context.Context, action string, params Params) *envelope.Envelope {
	op := "manage_context." + action
	switch action {
	case "create":
		return c.create(ctx, op, params)
	case "get":
		return c.get(ctx, op, params)
	case "update":
		return c.update(ctx, op, params)
	case "delete":
		return c.delete(ctx, op, params)
	case "resolve":
		return c.resolve(ctx, op, params)
	case "list":
		return c.list(ctx, op, params)
	case "delegate":
		return c.delegate(ctx, op, params)
	case "add_insight":
		return c.addInsight(ctx, op, params)
	case "add_progress":
		return c.addProgress(ctx, op, params)
	case "approve_delegation":
		return c.approveDelegation(ctx, op, params)
	case "reject_delegation":
		return c.rejectDelegation(ctx, op, params)
	case "pending_delegations":
		return c.pendingDelegations(ctx, op, params)
	case "seed":
		return c.seed(ctx, op, params)
	default:
		return envelope.Failure(op, apperrors.InvalidAction("manage_context", action))
	}
}

func (c *ContextController) create(ctx context.Context, op string, params Params) *envelope.Envelope {
	level, id, err := c.levelAndID(op, params)
	if err != nil {
		return envelope.Failure(op, err)
	}
	record, err := c.resolver.Create(ctx, level, id, params.dataMap("data"))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"context_data": record})
}

func (c *ContextController) get(ctx context.Context, op string, params Params) *envelope.Envelope {
	level, id, err := c.levelAndID(op, params)
	if err != nil {
		return envelope.Failure(op, err)
	}
	record, err := c.resolver.Get(ctx, level, id)
	if err != nil {
		return envelope.Failure(op, apperrors.NotFound(op, err))
	}
	return envelope.Success(op, map[string]interface{}{"context_data": record})
}

func (c *ContextController) update(ctx context.Context, op string, params Params) *envelope.Envelope {
	level, id, err := c.levelAndID(op, params)
	if err != nil {
		return envelope.Failure(op, err)
	}
	record, err := c.resolver.Update(ctx, level, id, params.dataMap("data"), params.boolDefault("propagate", false))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"context_data": record})
}

func (c *ContextController) delete(ctx context.Context, op string, params Params) *envelope.Envelope {
	level, id, err := c.levelAndID(op, params)
	if err != nil {
		return envelope.Failure(op, err)
	}
	if err := c.resolver.Delete(ctx, level, id); err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"level": level, "id": id})
}

func (c *ContextController) resolve(ctx context.Context, op string, params Params) *envelope.Envelope {
	level, id, err := c.levelAndID(op, params)
	if err != nil {
		return envelope.Failure(op, err)
	}
	resolved, err := c.resolver.Resolve(ctx, level, id, params.boolDefault("force_refresh", false), params.boolDefault("include_inherited", true))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"resolved_context": resolved})
}

func (c *ContextController) list(ctx context.Context, op string, params Params) *envelope.Envelope {
	filter := types.ContextFilter{}
	if level := params.str("level"); level != "" {
		l := types.Level(level)
		filter.Level = &l
	}
	records, err := c.resolver.List(ctx, filter)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"contexts": records})
}

// addInsight appends one insight entry to the context's "insights" list by
// relying on resolver.Update's deep-merge list-concatenation semantics
// rather than a read-modify-write of the whole record.
func (c *ContextController) addInsight(ctx context.Context, op string, params Params) *envelope.Envelope {
	level, id, err := c.levelAndID(op, params)
	if err != nil {
		return envelope.Failure(op, err)
	}
	text, err := params.requireStr(op, "text")
	if err != nil {
		return envelope.Failure(op, err)
	}
	delta := map[string]interface{}{
		"insights": []interface{}{map[string]interface{}{
			"text":          text,
			"auto_delegate": params.boolDefault("auto_delegate", false),
		}},
	}
	record, err := c.resolver.Update(ctx, level, id, delta, false)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"context_data": record})
}

// addProgress appends one progress log entry, same list-concatenation
// semantics as addInsight.
func (c *ContextController) addProgress(ctx context.Context, op string, params Params) *envelope.Envelope {
	level, id, err := c.levelAndID(op, params)
	if err != nil {
		return envelope.Failure(op, err)
	}
	note, err := params.requireStr(op, "note")
	if err != nil {
		return envelope.Failure(op, err)
	}
	delta := map[string]interface{}{
		"progress_log": []interface{}{note},
	}
	record, err := c.resolver.Update(ctx, level, id, delta, false)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"context_data": record})
}

func (c *ContextController) delegate(ctx context.Context, op string, params Params) *envelope.Envelope {
	sourceLevel, sourceID, err := c.levelAndID(op, params)
	if err != nil {
		return envelope.Failure(op, err)
	}
	targetLevelStr, err := params.requireStr(op, "target_level")
	if err != nil {
		return envelope.Failure(op, err)
	}
	targetID, err := params.requireStr(op, "target_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	delegation, err := c.delegation.Delegate(ctx, sourceLevel, sourceID, types.Level(targetLevelStr), targetID,
		params.dataMap("data"), params.str("reason"), params.boolDefault("auto_delegated", false))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"delegation_result": delegation})
}

func (c *ContextController) approveDelegation(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "delegation_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	delegation, err := c.delegation.Approve(ctx, id)
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"delegation_result": delegation})
}

func (c *ContextController) rejectDelegation(ctx context.Context, op string, params Params) *envelope.Envelope {
	id, err := params.uuid(op, "delegation_id")
	if err != nil {
		return envelope.Failure(op, err)
	}
	delegation, err := c.delegation.Reject(ctx, id, params.str("reason"))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"delegation_result": delegation})
}

func (c *ContextController) pendingDelegations(ctx context.Context, op string, params Params) *envelope.Envelope {
	level, err := params.requireStr(op, "target_level")
	if err != nil {
		return envelope.Failure(op, err)
	}
	pending, err := c.delegation.PendingReviewQueue(ctx, types.Level(level))
	if err != nil {
		return envelope.Failure(op, err)
	}
	return envelope.Success(op, map[string]interface{}{"pending": pending})
}

// seedEntry is one record of a YAML context fixture loaded by the seed
// action.
type seedEntry struct {
	Level string                 `yaml:"level"`
	ID    string                 `yaml:"id"`
	Data  map[string]interface{} `yaml:"data"`
}

// seed loads a YAML document of {level, id, data} records and creates or
// updates each context, for standing up the mandatory global_singleton
// context (and any project/branch defaults) on a fresh database. It is
// dispatched like any other manage_context action, so any MCP client can
// call it; the migrate CLI command only applies the schema.
func (c *ContextController) seed(ctx context.Context, op string, params Params) *envelope.Envelope {
	doc, err := params.requireStr(op, "yaml")
	if err != nil {
		return envelope.Failure(op, err)
	}
	var entries []seedEntry
	if err := yaml.Unmarshal([]byte(doc), &entries); err != nil {
		return envelope.Failure(op, apperrors.ValidationError(op, fmt.Errorf("invalid seed yaml: %w", err)))
	}

	seeded := make([]*types.ContextRecord, 0, len(entries))
	for _, entry := range entries {
		level := types.Level(entry.Level)
		if _, getErr := c.resolver.Get(ctx, level, entry.ID); getErr == nil {
			record, updErr := c.resolver.Update(ctx, level, entry.ID, entry.Data, false)
			if updErr != nil {
				return envelope.Failure(op, updErr)
			}
			seeded = append(seeded, record)
			continue
		}
		record, createErr := c.resolver.Create(ctx, level, entry.ID, entry.Data)
		if createErr != nil {
			return envelope.Failure(op, createErr)
		}
		seeded = append(seeded, record)
	}
	return envelope.Success(op, map[string]interface{}{"seeded": seeded})
}

func (c *ContextController) levelAndID(op string, params Params) (types.Level, string, error) {
	level, err := params.requireStr(op, "level")
	if err != nil {
		return "", "", err
	}
	id, err := params.requireStr(op, "id")
	if err != nil {
		return "", "", err
	}
	if _, parseErr := uuid.Parse(id); parseErr != nil && types.Level(level) != types.LevelGlobal {
		return "", "", apperrors.ValidationError(op, errInvalidContextID)
	}
	return types.Level(level), id, nil
}
