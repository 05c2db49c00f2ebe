package agentcatalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxforge/taskmcp/internal/repository/inmemory"
	"github.com/ctxforge/taskmcp/internal/types"
)

func newTestService(t *testing.T) (*Service, types.Repository) {
	t.Helper()
	repo := inmemory.New()
	catalog := New(NewRepositorySource(repo), time.Minute, 2*time.Minute)
	return NewService(repo, catalog), repo
}

func TestRegister_RejectsEmptyName(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Register(context.Background(), &types.Agent{})
	assert.Error(t, err)
}

func TestRegister_DefaultsStatusToAvailable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &types.Agent{Name: "reviewer"}))

	agent, err := svc.Get(ctx, "reviewer")
	require.NoError(t, err)
	assert.Equal(t, types.AgentStatusAvailable, agent.Status)
}

func TestGet_ServesFromCacheAfterFirstLookup(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &types.Agent{Name: "reviewer"}))

	first, err := svc.Get(ctx, "reviewer")
	require.NoError(t, err)

	require.NoError(t, repo.UnregisterAgent(ctx, "reviewer"))

	cached, err := svc.Get(ctx, "reviewer")
	require.NoError(t, err, "cache should still serve the entry even after the underlying row is gone")
	assert.Equal(t, first.Name, cached.Name)
}

func TestUnregister_InvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &types.Agent{Name: "reviewer"}))
	_, err := svc.Get(ctx, "reviewer")
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(ctx, "reviewer"))

	_, err = svc.Get(ctx, "reviewer")
	assert.Error(t, err)
}

func TestAssign_FailsForUnknownAgent(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Assign(context.Background(), "ghost", uuid.New())
	assert.Error(t, err)
}

func TestAssignAndUnassign(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &types.Agent{Name: "reviewer"}))
	branchID := uuid.New()

	_, err := svc.Assign(ctx, "reviewer", branchID)
	require.NoError(t, err)

	assignments, err := svc.Assignments(ctx, branchID)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)

	require.NoError(t, svc.Unassign(ctx, "reviewer", branchID))
	assignments, err = svc.Assignments(ctx, branchID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestCall_ReturnsDescriptor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, &types.Agent{Name: "reviewer", Capabilities: []string{"go", "review"}}))

	agent, err := svc.Call(ctx, "reviewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "review"}, agent.Capabilities)
}
