// Package task implements the task and subtask lifecycle services: status
// transitions, completion gating, progress rollup, and dependency-graph
// analysis.
package task

import (
	"sort"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

// DependencyNode is one task's position in the dependency graph.
type DependencyNode struct {
	TaskID          uuid.UUID
	Dependencies    []uuid.UUID
	Dependents      []uuid.UUID
	BlockingReasons []string
}

// DependencyGraph is the depends-on graph over a set of tasks (the task
// controller builds it from a whole project's edges), rebuilt per
// operation from the repository's task rows rather than kept resident.
type DependencyGraph struct {
	Nodes       map[uuid.UUID]*DependencyNode
	CyclicTasks []uuid.UUID
	HasCycles   bool
}

// BuildGraph constructs a DependencyGraph from task rows, each carrying its
// own Dependencies list.
func BuildGraph(tasks []*types.Task) *DependencyGraph {
	graph := &DependencyGraph{Nodes: make(map[uuid.UUID]*DependencyNode, len(tasks))}
	for _, t := range tasks {
		deps := make([]uuid.UUID, len(t.Dependencies))
		copy(deps, t.Dependencies)
		graph.Nodes[t.ID] = &DependencyNode{TaskID: t.ID, Dependencies: deps}
	}
	for _, node := range graph.Nodes {
		for _, depID := range node.Dependencies {
			if depNode, ok := graph.Nodes[depID]; ok {
				depNode.Dependents = append(depNode.Dependents, node.TaskID)
			} else {
				node.BlockingReasons = append(node.BlockingReasons, "dependency "+depID.String()+" not found")
			}
		}
	}
	detectCycles(graph)
	return graph
}

func detectCycles(graph *DependencyGraph) {
	visited := make(map[uuid.UUID]bool)
	recStack := make(map[uuid.UUID]bool)
	for id := range graph.Nodes {
		if !visited[id] {
			if dfsHasCycle(graph, id, visited, recStack) {
				graph.HasCycles = true
			}
		}
	}
}

func dfsHasCycle(graph *DependencyGraph, id uuid.UUID, visited, recStack map[uuid.UUID]bool) bool {
	visited[id] = true
	recStack[id] = true
	node := graph.Nodes[id]
	for _, depID := range node.Dependencies {
		if _, exists := graph.Nodes[depID]; !exists {
			continue
		}
		if !visited[depID] {
			if dfsHasCycle(graph, depID, visited, recStack) {
				graph.CyclicTasks = append(graph.CyclicTasks, id)
				return true
			}
		} else if recStack[depID] {
			graph.CyclicTasks = append(graph.CyclicTasks, id)
			return true
		}
	}
	recStack[id] = false
	return false
}

// WouldCreateCycle reports whether adding a taskID-depends-on-dependsOnID
// edge would introduce a cycle, by checking whether taskID is already
// reachable from dependsOnID.
func WouldCreateCycle(graph *DependencyGraph, taskID, dependsOnID uuid.UUID) bool {
	if taskID == dependsOnID {
		return true
	}
	visited := make(map[uuid.UUID]bool)
	var walk func(id uuid.UUID) bool
	walk = func(id uuid.UUID) bool {
		if id == taskID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		node, ok := graph.Nodes[id]
		if !ok {
			return false
		}
		for _, dep := range node.Dependencies {
			if walk(dep) {
				return true
			}
		}
		return false
	}
	return walk(dependsOnID)
}

// Blockers maps each task id to the ids of its dependencies that are not yet
// done or cancelled, i.e. what is still holding it back from being
// actionable.
func Blockers(graph *DependencyGraph, tasksByID map[uuid.UUID]*types.Task) map[uuid.UUID][]uuid.UUID {
	out := make(map[uuid.UUID][]uuid.UUID)
	for id, node := range graph.Nodes {
		var blocking []uuid.UUID
		for _, dep := range node.Dependencies {
			if t, ok := tasksByID[dep]; ok && t.Status != types.TaskStatusDone && t.Status != types.TaskStatusCancelled {
				blocking = append(blocking, dep)
			}
		}
		if len(blocking) > 0 {
			out[id] = blocking
		}
	}
	return out
}

// NextTask implements manage_task.next: the highest-priority task that is
// not done, cancelled, or blocked, and whose dependencies are all done.
// Ties break by earliest created_at, then by id lexicographic order.
func NextTask(tasks []*types.Task) (*types.Task, bool) {
	byID := make(map[uuid.UUID]*types.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var candidates []*types.Task
	for _, t := range tasks {
		if t.Status == types.TaskStatusDone || t.Status == types.TaskStatusCancelled || t.Status == types.TaskStatusBlocked {
			continue
		}
		if !dependenciesSatisfied(t, byID) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return candidates[0], true
}

func dependenciesSatisfied(t *types.Task, byID map[uuid.UUID]*types.Task) bool {
	for _, depID := range t.Dependencies {
		dep, ok := byID[depID]
		if !ok {
			continue
		}
		if dep.Status != types.TaskStatusDone {
			return false
		}
	}
	return true
}
