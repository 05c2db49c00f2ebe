package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctxengine "github.com/ctxforge/taskmcp/internal/context"
	"github.com/ctxforge/taskmcp/internal/testutil"
	"github.com/ctxforge/taskmcp/internal/types"
)

func newContextController(t *testing.T) *ContextController {
	t.Helper()
	c, _ := newContextControllerWithRepo(t)
	return c
}

func newContextControllerWithRepo(t *testing.T) (*ContextController, types.Repository) {
	t.Helper()
	cfg := testutil.NewTestConfig(t)
	repo := cfg.SetupTestRepository(t)

	cache, err := ctxengine.NewCache(100, 0)
	require.NoError(t, err)
	resolver := ctxengine.NewResolver(repo, cache)
	delegation := ctxengine.NewDelegationEngine(repo, resolver)

	return NewContextController(resolver, delegation), repo
}

func TestContextControllerCreateReturnsContextDataKey(t *testing.T) {
	c := newContextController(t)
	env := c.Dispatch(context.Background(), "create", Params{
		"level": string(types.LevelGlobal),
		"id":    "global_singleton",
		"data":  map[string]interface{}{"rule": "value"},
	})
	require.True(t, env.Success)
	_, ok := env.Data["context_data"]
	assert.True(t, ok, "create must return data.context_data per spec.md §4.8")
	_, ok = env.Data["context"]
	assert.False(t, ok, "create must not return the legacy data.context key")
}

func TestContextControllerGetUpdateDeleteReturnContextDataKey(t *testing.T) {
	c := newContextController(t)
	create := c.Dispatch(context.Background(), "create", Params{
		"level": string(types.LevelGlobal),
		"id":    "global_singleton",
		"data":  map[string]interface{}{"rule": "value"},
	})
	require.True(t, create.Success)

	get := c.Dispatch(context.Background(), "get", Params{
		"level": string(types.LevelGlobal),
		"id":    "global_singleton",
	})
	require.True(t, get.Success)
	_, ok := get.Data["context_data"]
	assert.True(t, ok)

	update := c.Dispatch(context.Background(), "update", Params{
		"level": string(types.LevelGlobal),
		"id":    "global_singleton",
		"data":  map[string]interface{}{"rule": "new-value"},
	})
	require.True(t, update.Success)
	_, ok = update.Data["context_data"]
	assert.True(t, ok)
}

func TestContextControllerResolveReturnsResolvedContextKey(t *testing.T) {
	c := newContextController(t)
	create := c.Dispatch(context.Background(), "create", Params{
		"level": string(types.LevelGlobal),
		"id":    "global_singleton",
		"data":  map[string]interface{}{"rule": "value"},
	})
	require.True(t, create.Success)

	resolve := c.Dispatch(context.Background(), "resolve", Params{
		"level": string(types.LevelGlobal),
		"id":    "global_singleton",
	})
	require.True(t, resolve.Success)
	_, ok := resolve.Data["resolved_context"]
	assert.True(t, ok, "resolve must return data.resolved_context per spec.md §4.8")
	_, ok = resolve.Data["resolved"]
	assert.False(t, ok, "resolve must not return the legacy data.resolved key")
}

func TestContextControllerDelegateReturnsDelegationResultKey(t *testing.T) {
	c, repo := newContextControllerWithRepo(t)
	p := testutil.SeedProject(t, repo, "proj")
	b := testutil.SeedBranch(t, repo, p.ID, "main")
	project := c.Dispatch(context.Background(), "create", Params{
		"level": string(types.LevelProject),
		"id":    p.ID.String(),
		"data":  map[string]interface{}{},
	})
	require.True(t, project.Success)
	branch := c.Dispatch(context.Background(), "create", Params{
		"level": string(types.LevelBranch),
		"id":    b.ID.String(),
		"data":  map[string]interface{}{},
	})
	require.True(t, branch.Success)

	delegate := c.Dispatch(context.Background(), "delegate", Params{
		"level":          string(types.LevelBranch),
		"id":             b.ID.String(),
		"target_level":   string(types.LevelProject),
		"target_id":      p.ID.String(),
		"data":           map[string]interface{}{"insight": "reusable pattern"},
		"auto_delegated": false,
	})
	require.True(t, delegate.Success)
	_, ok := delegate.Data["delegation_result"]
	assert.True(t, ok, "delegate must return data.delegation_result per spec.md §4.8")
	_, ok = delegate.Data["delegation"]
	assert.False(t, ok, "delegate must not return the legacy data.delegation key")
}

func TestContextControllerSeedCreatesFromYAML(t *testing.T) {
	c := newContextController(t)
	doc := "- level: global\n  id: global_singleton\n  data:\n    rule: \"no force-push to main\"\n"

	env := c.Dispatch(context.Background(), "seed", Params{"yaml": doc})
	require.True(t, env.Success)

	get := c.Dispatch(context.Background(), "get", Params{
		"level": string(types.LevelGlobal),
		"id":    "global_singleton",
	})
	require.True(t, get.Success)
	record := get.Data["context_data"].(*types.ContextRecord)
	assert.Equal(t, "no force-push to main", record.Data["rule"])
}
