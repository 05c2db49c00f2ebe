package task

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxforge/taskmcp/internal/types"
)

func TestBuildGraph_DetectsCycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	tasks := []*types.Task{
		{ID: a, Dependencies: []uuid.UUID{b}},
		{ID: b, Dependencies: []uuid.UUID{c}},
		{ID: c, Dependencies: []uuid.UUID{a}},
	}

	graph := BuildGraph(tasks)

	assert.True(t, graph.HasCycles)
	assert.NotEmpty(t, graph.CyclicTasks)
}

func TestBuildGraph_NoCycle(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	tasks := []*types.Task{
		{ID: a},
		{ID: b, Dependencies: []uuid.UUID{a}},
	}

	graph := BuildGraph(tasks)

	require.False(t, graph.HasCycles)
	assert.Equal(t, []uuid.UUID{b}, graph.Nodes[a].Dependents)
}

func TestWouldCreateCycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	tasks := []*types.Task{
		{ID: a},
		{ID: b, Dependencies: []uuid.UUID{a}},
		{ID: c, Dependencies: []uuid.UUID{b}},
	}
	graph := BuildGraph(tasks)

	assert.True(t, WouldCreateCycle(graph, a, c), "a -> c would close the a -> c -> b -> a loop")
	assert.False(t, WouldCreateCycle(graph, c, a), "c already depends on a transitively, not a new cycle")
	assert.True(t, WouldCreateCycle(graph, a, a), "self-dependency is always a cycle")
}

func TestNextTask_PriorityOrdering(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	low := &types.Task{ID: uuid.New(), Status: types.TaskStatusTodo, Priority: types.TaskPriorityLow, CreatedAt: now}
	urgent := &types.Task{ID: uuid.New(), Status: types.TaskStatusTodo, Priority: types.TaskPriorityUrgent, CreatedAt: now}
	done := &types.Task{ID: uuid.New(), Status: types.TaskStatusDone, Priority: types.TaskPriorityCritical, CreatedAt: now}

	next, ok := NextTask([]*types.Task{low, urgent, done})

	require.True(t, ok)
	assert.Equal(t, urgent.ID, next.ID)
}

func TestNextTask_SkipsBlockedAndUnsatisfiedDependencies(t *testing.T) {
	dep := &types.Task{ID: uuid.New(), Status: types.TaskStatusTodo, Priority: types.TaskPriorityHigh}
	blocked := &types.Task{ID: uuid.New(), Status: types.TaskStatusBlocked, Priority: types.TaskPriorityCritical}
	waiting := &types.Task{
		ID: uuid.New(), Status: types.TaskStatusTodo, Priority: types.TaskPriorityCritical,
		Dependencies: []uuid.UUID{dep.ID},
	}

	next, ok := NextTask([]*types.Task{dep, blocked, waiting})

	require.True(t, ok)
	assert.Equal(t, dep.ID, next.ID, "only dep is actionable: blocked is excluded, waiting's dependency isn't done")
}

func TestNextTask_TieBreaksByCreatedAtThenID(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	a := &types.Task{ID: uuid.New(), Status: types.TaskStatusTodo, Priority: types.TaskPriorityMedium, CreatedAt: newer}
	b := &types.Task{ID: uuid.New(), Status: types.TaskStatusTodo, Priority: types.TaskPriorityMedium, CreatedAt: older}

	next, ok := NextTask([]*types.Task{a, b})

	require.True(t, ok)
	assert.Equal(t, b.ID, next.ID)
}

func TestNextTask_EmptyYieldsNoCandidate(t *testing.T) {
	_, ok := NextTask(nil)
	assert.False(t, ok)
}
