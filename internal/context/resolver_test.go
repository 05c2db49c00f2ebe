package context

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxforge/taskmcp/internal/repository/inmemory"
	"github.com/ctxforge/taskmcp/internal/types"
)

func newTestResolver(t *testing.T) (*Resolver, types.Repository) {
	t.Helper()
	repo := inmemory.New()
	cache, err := NewCache(100, 0)
	require.NoError(t, err)
	return NewResolver(repo, cache), repo
}

func TestResolve_MergesFourLevels(t *testing.T) {
	resolver, repo := newTestResolver(t)
	ctx := context.Background()

	project := &types.Project{Name: "Alpha"}
	require.NoError(t, repo.CreateProject(ctx, project))
	branch := &types.Branch{ProjectID: project.ID, Name: "feat/x"}
	require.NoError(t, repo.CreateBranch(ctx, branch))
	task := &types.Task{BranchID: branch.ID, Title: "Impl"}
	require.NoError(t, repo.CreateTask(ctx, task))

	_, err := resolver.Create(ctx, types.LevelGlobal, types.GlobalContextID, map[string]interface{}{
		"rules": map[string]interface{}{"style": "isort"},
		"lists": []interface{}{"g"},
	})
	require.NoError(t, err)
	_, err = resolver.Create(ctx, types.LevelProject, project.ID.String(), map[string]interface{}{
		"lists": []interface{}{"p"},
	})
	require.NoError(t, err)
	_, err = resolver.Create(ctx, types.LevelBranch, branch.ID.String(), map[string]interface{}{
		"lists": []interface{}{"b"},
	})
	require.NoError(t, err)
	_, err = resolver.Create(ctx, types.LevelTask, task.ID.String(), map[string]interface{}{
		"rules": map[string]interface{}{"linter": "ruff"},
		"lists": []interface{}{"t"},
	})
	require.NoError(t, err)

	resolved, err := resolver.Resolve(ctx, types.LevelTask, task.ID.String(), false, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"global", "project", "branch", "task"}, resolved.InheritanceChain)
	rules := resolved.Data["rules"].(map[string]interface{})
	assert.Equal(t, "isort", rules["style"])
	assert.Equal(t, "ruff", rules["linter"])
	lists := toStringSlice(resolved.Data["lists"])
	assert.Equal(t, []string{"g", "p", "b", "t"}, lists)
}

func TestResolve_MissingParentFails(t *testing.T) {
	resolver, repo := newTestResolver(t)
	ctx := context.Background()

	project := &types.Project{Name: "Alpha"}
	require.NoError(t, repo.CreateProject(ctx, project))
	branch := &types.Branch{ProjectID: project.ID, Name: "feat/x"}
	require.NoError(t, repo.CreateBranch(ctx, branch))
	task := &types.Task{BranchID: branch.ID, Title: "Impl"}
	require.NoError(t, repo.CreateTask(ctx, task))

	_, err := resolver.Create(ctx, types.LevelTask, task.ID.String(), map[string]interface{}{"a": 1})
	require.NoError(t, err)

	_, err = resolver.Resolve(ctx, types.LevelTask, task.ID.String(), false, true)
	assert.Error(t, err)
}

func TestResolve_InheritanceDisabledStopsChain(t *testing.T) {
	resolver, repo := newTestResolver(t)
	ctx := context.Background()

	project := &types.Project{Name: "Alpha"}
	require.NoError(t, repo.CreateProject(ctx, project))
	branch := &types.Branch{ProjectID: project.ID, Name: "feat/x"}
	require.NoError(t, repo.CreateBranch(ctx, branch))

	_, err := resolver.Create(ctx, types.LevelGlobal, types.GlobalContextID, map[string]interface{}{"x": "global"})
	require.NoError(t, err)
	_, err = resolver.Create(ctx, types.LevelProject, project.ID.String(), map[string]interface{}{"x": "project"})
	require.NoError(t, err)
	branchCtx, err := resolver.Create(ctx, types.LevelBranch, branch.ID.String(), map[string]interface{}{"x": "branch"})
	require.NoError(t, err)
	branchCtx.InheritanceDisabled = true
	require.NoError(t, repo.UpdateContext(ctx, branchCtx))
	resolver.cache.Invalidate(types.LevelBranch, branch.ID.String())

	resolved, err := resolver.Resolve(ctx, types.LevelBranch, branch.ID.String(), true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"branch"}, resolved.InheritanceChain)
	assert.Equal(t, "branch", resolved.Data["x"])
}

func toStringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, len(raw))
	for i, item := range raw {
		out[i] = item.(string)
	}
	return out
}

func TestCache_InvalidateOnWrite(t *testing.T) {
	cache, err := NewCache(10, 0)
	require.NoError(t, err)

	resolved := types.ResolvedContext{Level: types.LevelTask, ID: "t1", Data: map[string]interface{}{"a": 1}}
	cache.Put(types.LevelTask, "t1", resolved, "hash1", []cacheKey{
		{Level: types.LevelTask, ID: "t1"},
		{Level: types.LevelProject, ID: "p1"},
	})

	_, ok := cache.Get(types.LevelTask, "t1")
	assert.True(t, ok)

	cache.Invalidate(types.LevelProject, "p1")

	_, ok = cache.Get(types.LevelTask, "t1")
	assert.False(t, ok, "invalidating an ancestor must evict every descendant cache entry")
}

// TestResolve_ForceRefreshIsByteEqual covers invariant 5: repeated
// resolve(..., force_refresh=true) calls against unchanged underlying
// contexts must return byte-equal merged data, not just equivalent-looking
// data, since callers diff resolved contexts across calls.
func TestResolve_ForceRefreshIsByteEqual(t *testing.T) {
	resolver, repo := newTestResolver(t)
	ctx := context.Background()

	project := &types.Project{Name: "Alpha"}
	require.NoError(t, repo.CreateProject(ctx, project))
	branch := &types.Branch{ProjectID: project.ID, Name: "feat/x"}
	require.NoError(t, repo.CreateBranch(ctx, branch))

	_, err := resolver.Create(ctx, types.LevelGlobal, types.GlobalContextID, map[string]interface{}{
		"rules": map[string]interface{}{"style": "isort"},
	})
	require.NoError(t, err)
	_, err = resolver.Create(ctx, types.LevelProject, project.ID.String(), map[string]interface{}{
		"owner": "alpha-team",
	})
	require.NoError(t, err)
	_, err = resolver.Create(ctx, types.LevelBranch, branch.ID.String(), map[string]interface{}{
		"reviewers": []interface{}{"a", "b"},
	})
	require.NoError(t, err)

	first, err := resolver.Resolve(ctx, types.LevelBranch, branch.ID.String(), true, true)
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, types.LevelBranch, branch.ID.String(), true, true)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Data, second.Data); diff != "" {
		t.Fatalf("repeated force_refresh resolve must return byte-equal data (-first +second):\n%s", diff)
	}
	assert.True(t, cmp.Equal(first.InheritanceChain, second.InheritanceChain))
}
