package context

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/types"
)

// levelOrder is the inheritance chain from root to leaf.
var levelOrder = []types.Level{types.LevelGlobal, types.LevelProject, types.LevelBranch, types.LevelTask}

// Resolver implements the four-tier hierarchical context resolver: merge,
// cache, create/update/delete with cascade and invalidation.
type Resolver struct {
	repo    types.Repository
	cache   *Cache
	sfGroup singleflight.Group
}

// NewResolver builds a Resolver backed by repo and cache.
func NewResolver(repo types.Repository, cache *Cache) *Resolver {
	return &Resolver{repo: repo, cache: cache}
}

// parentOf returns the parent (level, id) of (level, id) in the inheritance
// chain, following spec.md §9's "dispatch on the tag" design: a task's
// parent is its branch, a branch's parent is its project, a project's
// parent is the global singleton. Global has no parent.
func (r *Resolver) parentOf(ctx context.Context, level types.Level, id string) (types.Level, string, bool, error) {
	switch level {
	case types.LevelTask:
		taskID, err := uuid.Parse(id)
		if err != nil {
			return "", "", false, fmt.Errorf("invalid task id %q: %w", id, err)
		}
		task, err := r.repo.GetTask(ctx, taskID)
		if err != nil {
			return "", "", false, err
		}
		return types.LevelBranch, task.BranchID.String(), true, nil
	case types.LevelBranch:
		branchID, err := uuid.Parse(id)
		if err != nil {
			return "", "", false, fmt.Errorf("invalid branch id %q: %w", id, err)
		}
		branch, err := r.repo.GetBranch(ctx, branchID)
		if err != nil {
			return "", "", false, err
		}
		return types.LevelProject, branch.ProjectID.String(), true, nil
	case types.LevelProject:
		return types.LevelGlobal, types.GlobalContextID, true, nil
	default: // global
		return "", "", false, nil
	}
}

// Resolve produces the merged context for (level, id), walking the
// inheritance chain unless includeInherited is false. forceRefresh bypasses
// the cache on read but still populates it afterward.
func (r *Resolver) Resolve(ctx context.Context, level types.Level, id string, forceRefresh, includeInherited bool) (*types.ResolvedContext, error) {
	if !forceRefresh && includeInherited {
		if cached, ok := r.cache.Get(level, id); ok {
			return &cached, nil
		}
	}

	sfKey := fmt.Sprintf("%s:%s:%t", level, id, includeInherited)
	v, err, _ := r.sfGroup.Do(sfKey, func() (interface{}, error) {
		return r.resolveUncached(ctx, level, id, includeInherited)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.ResolvedContext), nil
}

func (r *Resolver) resolveUncached(ctx context.Context, level types.Level, id string, includeInherited bool) (*types.ResolvedContext, error) {
	leaf, err := r.repo.GetContext(ctx, level, id)
	if err != nil {
		return nil, err
	}

	type linkRef struct {
		level   types.Level
		id      string
		record  *types.ContextRecord
	}

	chain := []linkRef{{level: level, id: id, record: leaf}}
	visited := map[string]bool{string(level) + ":" + id: true}

	if includeInherited && !leaf.InheritanceDisabled {
		curLevel, curID, hasParent, err := r.parentOf(ctx, level, id)
		if err != nil {
			return nil, err
		}
		for hasParent {
			key := string(curLevel) + ":" + curID
			if visited[key] {
				return nil, apperrors.CircularInheritance([]string{string(level) + "/" + id, key})
			}
			visited[key] = true

			rec, err := r.repo.GetContext(ctx, curLevel, curID)
			if err != nil {
				return nil, apperrors.MissingParent("resolve_context", err)
			}
			chain = append(chain, linkRef{level: curLevel, id: curID, record: rec})
			if rec.InheritanceDisabled {
				break
			}
			curLevel, curID, hasParent, err = r.parentOf(ctx, curLevel, curID)
			if err != nil {
				return nil, err
			}
		}
	}

	merged := make(map[string]interface{})
	chainLabels := make([]string, 0, len(chain))
	chainKeys := make([]cacheKey, 0, len(chain))
	var hashParts []string

	for i := len(chain) - 1; i >= 0; i-- {
		link := chain[i]
		merged = deepMerge(merged, link.record.Data)
		chainLabels = append(chainLabels, string(link.level))
		chainKeys = append(chainKeys, cacheKey{Level: link.level, ID: link.id})
		hashParts = append(hashParts, fmt.Sprintf("%s:%s:%d", link.level, link.id, link.record.Version))
	}

	resolved := &types.ResolvedContext{
		Level:            level,
		ID:               id,
		Data:             merged,
		InheritanceChain: chainLabels,
		FromCache:        false,
		ResolvedAt:       time.Now(),
	}

	if includeInherited {
		r.cache.Put(level, id, *resolved, strings.Join(hashParts, "|"), chainKeys)
	}
	return resolved, nil
}

// deepMerge applies spec §4.1's merge rule: dicts recurse, lists
// concatenate parent-then-child without dedup, scalars from child win
// unless child's value is nil (treated as "unset").
func deepMerge(parent, child map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(parent)+len(child))
	for k, v := range parent {
		out[k] = v
	}
	for k, cv := range child {
		if cv == nil {
			continue
		}
		pv, exists := out[k]
		if !exists {
			out[k] = cv
			continue
		}
		out[k] = mergeValue(pv, cv)
	}
	return out
}

func mergeValue(parent, child interface{}) interface{} {
	if child == nil {
		return parent
	}
	switch cv := child.(type) {
	case map[string]interface{}:
		if pv, ok := parent.(map[string]interface{}); ok {
			return deepMerge(pv, cv)
		}
		return cv
	case []interface{}:
		if pv, ok := parent.([]interface{}); ok {
			out := make([]interface{}, 0, len(pv)+len(cv))
			out = append(out, pv...)
			out = append(out, cv...)
			return out
		}
		return cv
	default:
		return cv
	}
}

// Get returns the local ContextRecord for (level, id) with no inheritance.
func (r *Resolver) Get(ctx context.Context, level types.Level, id string) (*types.ContextRecord, error) {
	return r.repo.GetContext(ctx, level, id)
}

// Create creates a new context, rejecting if the parent is missing (except
// for global, which has none).
func (r *Resolver) Create(ctx context.Context, level types.Level, id string, data map[string]interface{}) (*types.ContextRecord, error) {
	if existing, err := r.repo.GetContext(ctx, level, id); err == nil && existing != nil {
		return nil, apperrors.AlreadyExists("create_context", fmt.Errorf("context %s/%s already exists", level, id))
	}
	if level != types.LevelGlobal {
		_, _, hasParent, err := r.parentOf(ctx, level, id)
		if err != nil {
			return nil, apperrors.MissingParent("create_context", err)
		}
		if !hasParent {
			return nil, apperrors.MissingParent("create_context", fmt.Errorf("no parent entity for %s/%s", level, id))
		}
	}

	rec := &types.ContextRecord{
		Level:              level,
		ID:                 id,
		Data:               data,
		LocalOverrides:     map[string]interface{}{},
		DelegationTriggers: map[string]interface{}{},
		Version:            1,
	}
	if err := r.repo.CreateContext(ctx, rec); err != nil {
		return nil, err
	}
	r.cache.Invalidate(level, id)
	return rec, nil
}

// Update merges data into the context's Data and bumps its version,
// invalidating all downstream caches. propagate is accepted for API
// compatibility with spec §4.1's signature; the merge rule already
// determines how descendants see the change on their next resolve.
func (r *Resolver) Update(ctx context.Context, level types.Level, id string, data map[string]interface{}, propagate bool) (*types.ContextRecord, error) {
	rec, err := r.repo.GetContext(ctx, level, id)
	if err != nil {
		return nil, err
	}
	rec.Data = deepMerge(rec.Data, data)
	if err := r.repo.UpdateContext(ctx, rec); err != nil {
		return nil, err
	}
	r.cache.Invalidate(level, id)
	return rec, nil
}

// Delete removes a context, refusing if a child context still exists.
func (r *Resolver) Delete(ctx context.Context, level types.Level, id string) error {
	hasChild, err := r.repo.HasChildContext(ctx, level, id)
	if err != nil {
		return err
	}
	if hasChild {
		return apperrors.ConflictingState("delete_context",
			fmt.Errorf("context %s/%s still has a child context", level, id))
	}
	if err := r.repo.DeleteContext(ctx, level, id); err != nil {
		return err
	}
	r.cache.Invalidate(level, id)
	return nil
}

// List returns contexts matching filter.
func (r *Resolver) List(ctx context.Context, filter types.ContextFilter) ([]*types.ContextRecord, error) {
	return r.repo.ListContexts(ctx, filter)
}
