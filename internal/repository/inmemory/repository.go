// Package inmemory provides a mutex-protected, map-backed types.Repository
// used for local development and unit tests, grounded on the teacher's
// simpleMemoryRepository (sync.RWMutex plus per-entity maps, server-assigned
// ids and timestamps on create).
//
// WithTx does not implement true rollback: it holds the write lock for the
// duration of fn and lets fn's writes land directly on the live maps. This
// mirrors how the teacher's in-memory repository was only ever a fast
// stand-in for tests, never the transaction boundary of record — that role
// belongs to the sqlite repository, which wraps a real *sql.Tx. Callers
// should not rely on partial writes being undone here; validate before
// mutating where the call can still fail.
package inmemory

// All individual methods lock r.mu themselves unless called through WithTx,
// which takes the lock once and tags the context so nested calls skip it.

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctxforge/taskmcp/internal/types"
)

type memoryRepository struct {
	mu sync.RWMutex

	projects map[uuid.UUID]*types.Project
	branches map[uuid.UUID]*types.Branch
	tasks    map[uuid.UUID]*types.Task
	subtasks map[uuid.UUID]*types.Subtask

	contexts    map[string]*types.ContextRecord
	delegations map[uuid.UUID]*types.ContextDelegation

	agents      map[string]*types.Agent
	assignments map[string]*types.AgentAssignment

	labels       map[uuid.UUID]*types.Label
	labelsByName map[string]uuid.UUID
	taskLabels   map[uuid.UUID]map[string]bool

	taskDeps map[uuid.UUID]map[uuid.UUID]bool
}

// New creates an empty in-memory Repository.
func New() types.Repository {
	return &memoryRepository{
		projects:     make(map[uuid.UUID]*types.Project),
		branches:     make(map[uuid.UUID]*types.Branch),
		tasks:        make(map[uuid.UUID]*types.Task),
		subtasks:     make(map[uuid.UUID]*types.Subtask),
		contexts:     make(map[string]*types.ContextRecord),
		delegations:  make(map[uuid.UUID]*types.ContextDelegation),
		agents:       make(map[string]*types.Agent),
		assignments:  make(map[string]*types.AgentAssignment),
		labels:       make(map[uuid.UUID]*types.Label),
		labelsByName: make(map[string]uuid.UUID),
		taskLabels:   make(map[uuid.UUID]map[string]bool),
		taskDeps:     make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *memoryRepository) Close() error                      { return nil }
func (r *memoryRepository) Ping(ctx context.Context) error    { return nil }

// WithTx runs fn with the write lock held; see the package doc for why this
// is not a real rollback boundary.
func (r *memoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo types.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(context.WithValue(ctx, inTxKey{}, true), r)
}

// --- Projects ---------------------------------------------------------

func (r *memoryRepository) CreateProject(ctx context.Context, p *types.Project) error {
	defer r.lock(ctx)()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.projects[p.ID] = p
	return nil
}

func (r *memoryRepository) GetProject(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	defer r.rlock(ctx)()

	p, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s not found", id)
	}
	return p, nil
}

func (r *memoryRepository) UpdateProject(ctx context.Context, p *types.Project) error {
	defer r.lock(ctx)()

	if _, ok := r.projects[p.ID]; !ok {
		return fmt.Errorf("project %s not found", p.ID)
	}
	p.UpdatedAt = time.Now()
	r.projects[p.ID] = p
	return nil
}

func (r *memoryRepository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	defer r.lock(ctx)()

	if _, ok := r.projects[id]; !ok {
		return fmt.Errorf("project %s not found", id)
	}
	for branchID, b := range r.branches {
		if b.ProjectID == id {
			r.deleteBranchLocked(branchID)
		}
	}
	delete(r.contexts, contextKey(types.LevelProject, id.String()))
	delete(r.projects, id)
	return nil
}

func (r *memoryRepository) ListProjects(ctx context.Context, filter types.ProjectFilter) ([]*types.Project, error) {
	defer r.rlock(ctx)()

	out := make([]*types.Project, 0, len(r.projects))
	for _, p := range r.projects {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) GetProjectByName(ctx context.Context, userID, name string) (*types.Project, error) {
	defer r.rlock(ctx)()

	for _, p := range r.projects {
		if p.UserID == userID && p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project %q not found for user %q", name, userID)
}

// --- Branches ----------------------------------------------------------

func (r *memoryRepository) CreateBranch(ctx context.Context, b *types.Branch) error {
	defer r.lock(ctx)()

	if _, ok := r.projects[b.ProjectID]; !ok {
		return fmt.Errorf("project %s not found", b.ProjectID)
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.branches[b.ID] = b
	return nil
}

func (r *memoryRepository) GetBranch(ctx context.Context, id uuid.UUID) (*types.Branch, error) {
	defer r.rlock(ctx)()

	b, ok := r.branches[id]
	if !ok {
		return nil, fmt.Errorf("branch %s not found", id)
	}
	return b, nil
}

func (r *memoryRepository) UpdateBranch(ctx context.Context, b *types.Branch) error {
	defer r.lock(ctx)()

	if _, ok := r.branches[b.ID]; !ok {
		return fmt.Errorf("branch %s not found", b.ID)
	}
	b.UpdatedAt = time.Now()
	r.branches[b.ID] = b
	return nil
}

func (r *memoryRepository) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	defer r.lock(ctx)()

	if _, ok := r.branches[id]; !ok {
		return fmt.Errorf("branch %s not found", id)
	}
	r.deleteBranchLocked(id)
	return nil
}

// deleteBranchLocked assumes the caller already holds the write lock.
func (r *memoryRepository) deleteBranchLocked(id uuid.UUID) {
	for taskID, t := range r.tasks {
		if t.BranchID == id {
			r.deleteTaskLocked(taskID)
		}
	}
	for key, a := range r.assignments {
		if a.BranchID == id {
			delete(r.assignments, key)
		}
	}
	delete(r.contexts, contextKey(types.LevelBranch, id.String()))
	delete(r.branches, id)
}

func (r *memoryRepository) ListBranches(ctx context.Context, filter types.BranchFilter) ([]*types.Branch, error) {
	defer r.rlock(ctx)()

	out := make([]*types.Branch, 0, len(r.branches))
	for _, b := range r.branches {
		if filter.ProjectID != nil && b.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) GetBranchByName(ctx context.Context, projectID uuid.UUID, name string) (*types.Branch, error) {
	defer r.rlock(ctx)()

	for _, b := range r.branches {
		if b.ProjectID == projectID && b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("branch %q not found in project %s", name, projectID)
}

// --- Tasks ---------------------------------------------------------------

func (r *memoryRepository) CreateTask(ctx context.Context, t *types.Task) error {
	defer r.lock(ctx)()

	if _, ok := r.branches[t.BranchID]; !ok {
		return fmt.Errorf("branch %s not found", t.BranchID)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	r.tasks[t.ID] = t
	for _, dep := range t.Dependencies {
		r.addDepLocked(t.ID, dep)
	}
	return nil
}

func (r *memoryRepository) GetTask(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	defer r.rlock(ctx)()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	return t, nil
}

func (r *memoryRepository) UpdateTask(ctx context.Context, t *types.Task) error {
	defer r.lock(ctx)()

	if _, ok := r.tasks[t.ID]; !ok {
		return fmt.Errorf("task %s not found", t.ID)
	}
	t.UpdatedAt = time.Now()
	r.tasks[t.ID] = t
	return nil
}

func (r *memoryRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	defer r.lock(ctx)()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task %s not found", id)
	}
	r.deleteTaskLocked(id)
	return nil
}

func (r *memoryRepository) deleteTaskLocked(id uuid.UUID) {
	for subID, s := range r.subtasks {
		if s.TaskID == id {
			delete(r.subtasks, subID)
		}
	}
	delete(r.taskDeps, id)
	for _, deps := range r.taskDeps {
		delete(deps, id)
	}
	delete(r.taskLabels, id)
	delete(r.contexts, contextKey(types.LevelTask, id.String()))
	delete(r.tasks, id)
}

func (r *memoryRepository) ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	defer r.rlock(ctx)()

	out := make([]*types.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if !r.matchesTaskFilter(t, filter) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) matchesTaskFilter(t *types.Task, filter types.TaskFilter) bool {
	if filter.BranchID != nil && t.BranchID != *filter.BranchID {
		return false
	}
	if filter.Status != nil && t.Status != *filter.Status {
		return false
	}
	if filter.Priority != nil && t.Priority != *filter.Priority {
		return false
	}
	if filter.Label != nil {
		names := r.taskLabels[t.ID]
		if !names[*filter.Label] {
			return false
		}
	}
	if filter.Assignee != nil {
		found := false
		for _, a := range t.Assignees {
			if a == *filter.Assignee {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SearchTasks implements the token-AND rule from spec §4.4: every token must
// appear, case-insensitively, in at least one of title/description/details/
// labels.
func (r *memoryRepository) SearchTasks(ctx context.Context, branchID uuid.UUID, tokens []string) ([]*types.Task, error) {
	defer r.rlock(ctx)()

	if len(tokens) == 0 {
		return []*types.Task{}, nil
	}

	lowered := make([]string, len(tokens))
	for i, tok := range tokens {
		lowered[i] = strings.ToLower(tok)
	}

	var out []*types.Task
	for _, t := range r.tasks {
		if t.BranchID != branchID {
			continue
		}
		haystack := strings.ToLower(strings.Join([]string{t.Title, t.Description, t.Details, strings.Join(t.Labels, " ")}, " \x00 "))
		matched := true
		for _, tok := range lowered {
			if !strings.Contains(haystack, tok) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) addDepLocked(taskID, dependsOnID uuid.UUID) {
	if r.taskDeps[taskID] == nil {
		r.taskDeps[taskID] = make(map[uuid.UUID]bool)
	}
	r.taskDeps[taskID][dependsOnID] = true
}

func (r *memoryRepository) AddTaskDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) error {
	defer r.lock(ctx)()

	if _, ok := r.tasks[taskID]; !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	if _, ok := r.tasks[dependsOnID]; !ok {
		return fmt.Errorf("task %s not found", dependsOnID)
	}
	r.addDepLocked(taskID, dependsOnID)
	if t := r.tasks[taskID]; !containsUUID(t.Dependencies, dependsOnID) {
		t.Dependencies = append(t.Dependencies, dependsOnID)
	}
	return nil
}

func (r *memoryRepository) RemoveTaskDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) error {
	defer r.lock(ctx)()

	delete(r.taskDeps[taskID], dependsOnID)
	if t, ok := r.tasks[taskID]; ok {
		t.Dependencies = removeUUID(t.Dependencies, dependsOnID)
	}
	return nil
}

func (r *memoryRepository) GetTaskDependencies(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	defer r.rlock(ctx)()

	out := make([]uuid.UUID, 0, len(r.taskDeps[taskID]))
	for dep := range r.taskDeps[taskID] {
		out = append(out, dep)
	}
	return out, nil
}

func (r *memoryRepository) GetDependentTasks(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	defer r.rlock(ctx)()

	var out []uuid.UUID
	for id, deps := range r.taskDeps {
		if deps[taskID] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memoryRepository) ListTaskDependencyEdges(ctx context.Context, projectID uuid.UUID) ([]types.TaskDependencyEdge, error) {
	defer r.rlock(ctx)()

	inProject := make(map[uuid.UUID]bool)
	for id, t := range r.tasks {
		if b, ok := r.branches[t.BranchID]; ok && b.ProjectID == projectID {
			inProject[id] = true
		}
	}

	var out []types.TaskDependencyEdge
	for taskID, deps := range r.taskDeps {
		if !inProject[taskID] {
			continue
		}
		for dep := range deps {
			out = append(out, types.TaskDependencyEdge{TaskID: taskID, DependsOnID: dep})
		}
	}
	return out, nil
}

// --- Subtasks --------------------------------------------------------

func (r *memoryRepository) CreateSubtask(ctx context.Context, s *types.Subtask) error {
	defer r.lock(ctx)()

	if _, ok := r.tasks[s.TaskID]; !ok {
		return fmt.Errorf("task %s not found", s.TaskID)
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	r.subtasks[s.ID] = s
	return nil
}

func (r *memoryRepository) GetSubtask(ctx context.Context, id uuid.UUID) (*types.Subtask, error) {
	defer r.rlock(ctx)()

	s, ok := r.subtasks[id]
	if !ok {
		return nil, fmt.Errorf("subtask %s not found", id)
	}
	return s, nil
}

func (r *memoryRepository) UpdateSubtask(ctx context.Context, s *types.Subtask) error {
	defer r.lock(ctx)()

	if _, ok := r.subtasks[s.ID]; !ok {
		return fmt.Errorf("subtask %s not found", s.ID)
	}
	s.UpdatedAt = time.Now()
	r.subtasks[s.ID] = s
	return nil
}

func (r *memoryRepository) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	defer r.lock(ctx)()

	if _, ok := r.subtasks[id]; !ok {
		return fmt.Errorf("subtask %s not found", id)
	}
	delete(r.subtasks, id)
	return nil
}

func (r *memoryRepository) ListSubtasks(ctx context.Context, filter types.SubtaskFilter) ([]*types.Subtask, error) {
	defer r.rlock(ctx)()

	out := make([]*types.Subtask, 0, len(r.subtasks))
	for _, s := range r.subtasks {
		if filter.TaskID != nil && s.TaskID != *filter.TaskID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Contexts ----------------------------------------------------------

func contextKey(level types.Level, id string) string {
	return string(level) + ":" + id
}

func (r *memoryRepository) CreateContext(ctx context.Context, c *types.ContextRecord) error {
	defer r.lock(ctx)()

	key := contextKey(c.Level, c.ID)
	if _, ok := r.contexts[key]; ok {
		return fmt.Errorf("context %s already exists", key)
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Version == 0 {
		c.Version = 1
	}
	r.contexts[key] = c
	return nil
}

func (r *memoryRepository) GetContext(ctx context.Context, level types.Level, id string) (*types.ContextRecord, error) {
	defer r.rlock(ctx)()

	c, ok := r.contexts[contextKey(level, id)]
	if !ok {
		return nil, fmt.Errorf("context %s:%s not found", level, id)
	}
	return c, nil
}

func (r *memoryRepository) UpdateContext(ctx context.Context, c *types.ContextRecord) error {
	defer r.lock(ctx)()

	key := contextKey(c.Level, c.ID)
	if _, ok := r.contexts[key]; !ok {
		return fmt.Errorf("context %s not found", key)
	}
	c.UpdatedAt = time.Now()
	c.Version++
	r.contexts[key] = c
	return nil
}

func (r *memoryRepository) DeleteContext(ctx context.Context, level types.Level, id string) error {
	defer r.lock(ctx)()

	key := contextKey(level, id)
	if _, ok := r.contexts[key]; !ok {
		return fmt.Errorf("context %s not found", key)
	}
	delete(r.contexts, key)
	return nil
}

func (r *memoryRepository) ListContexts(ctx context.Context, filter types.ContextFilter) ([]*types.ContextRecord, error) {
	defer r.rlock(ctx)()

	out := make([]*types.ContextRecord, 0, len(r.contexts))
	for _, c := range r.contexts {
		if filter.Level != nil && c.Level != *filter.Level {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// HasChildContext reports whether any context one level below (level, id)
// exists, used by delete to refuse removing a context with live children.
func (r *memoryRepository) HasChildContext(ctx context.Context, level types.Level, id string) (bool, error) {
	defer r.rlock(ctx)()

	switch level {
	case types.LevelGlobal:
		for _, c := range r.contexts {
			if c.Level == types.LevelProject {
				return true, nil
			}
		}
	case types.LevelProject:
		projectID, err := uuid.Parse(id)
		if err != nil {
			return false, fmt.Errorf("invalid project id %q: %w", id, err)
		}
		for _, b := range r.branches {
			if b.ProjectID != projectID {
				continue
			}
			if _, ok := r.contexts[contextKey(types.LevelBranch, b.ID.String())]; ok {
				return true, nil
			}
		}
	case types.LevelBranch:
		branchID, err := uuid.Parse(id)
		if err != nil {
			return false, fmt.Errorf("invalid branch id %q: %w", id, err)
		}
		for _, t := range r.tasks {
			if t.BranchID != branchID {
				continue
			}
			if _, ok := r.contexts[contextKey(types.LevelTask, t.ID.String())]; ok {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *memoryRepository) CreateDelegation(ctx context.Context, d *types.ContextDelegation) error {
	defer r.lock(ctx)()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	r.delegations[d.ID] = d
	return nil
}

func (r *memoryRepository) GetDelegation(ctx context.Context, id uuid.UUID) (*types.ContextDelegation, error) {
	defer r.rlock(ctx)()

	d, ok := r.delegations[id]
	if !ok {
		return nil, fmt.Errorf("delegation %s not found", id)
	}
	return d, nil
}

func (r *memoryRepository) UpdateDelegation(ctx context.Context, d *types.ContextDelegation) error {
	defer r.lock(ctx)()

	if _, ok := r.delegations[d.ID]; !ok {
		return fmt.Errorf("delegation %s not found", d.ID)
	}
	r.delegations[d.ID] = d
	return nil
}

func (r *memoryRepository) ListPendingDelegations(ctx context.Context, targetLevel types.Level) ([]*types.ContextDelegation, error) {
	defer r.rlock(ctx)()

	var out []*types.ContextDelegation
	for _, d := range r.delegations {
		if d.Processed {
			continue
		}
		if d.TargetLevel != targetLevel {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Agents --------------------------------------------------------------

func (r *memoryRepository) RegisterAgent(ctx context.Context, a *types.Agent) error {
	defer r.lock(ctx)()

	if a.Status == "" {
		a.Status = types.AgentStatusAvailable
	}
	r.agents[a.Name] = a
	return nil
}

func (r *memoryRepository) GetAgent(ctx context.Context, name string) (*types.Agent, error) {
	defer r.rlock(ctx)()

	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent %q not found", name)
	}
	return a, nil
}

func (r *memoryRepository) ListAgents(ctx context.Context) ([]*types.Agent, error) {
	defer r.rlock(ctx)()

	out := make([]*types.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) UnregisterAgent(ctx context.Context, name string) error {
	defer r.lock(ctx)()

	if _, ok := r.agents[name]; !ok {
		return fmt.Errorf("agent %q not found", name)
	}
	delete(r.agents, name)
	for key, a := range r.assignments {
		if a.AgentName == name {
			delete(r.assignments, key)
		}
	}
	return nil
}

func assignmentKey(agentName string, branchID uuid.UUID) string {
	return agentName + ":" + branchID.String()
}

func (r *memoryRepository) AssignAgent(ctx context.Context, a *types.AgentAssignment) error {
	defer r.lock(ctx)()

	if _, ok := r.agents[a.AgentName]; !ok {
		return fmt.Errorf("agent %q not found", a.AgentName)
	}
	if _, ok := r.branches[a.BranchID]; !ok {
		return fmt.Errorf("branch %s not found", a.BranchID)
	}
	a.AssignedAt = time.Now()
	r.assignments[assignmentKey(a.AgentName, a.BranchID)] = a
	return nil
}

func (r *memoryRepository) UnassignAgent(ctx context.Context, agentName string, branchID uuid.UUID) error {
	defer r.lock(ctx)()

	delete(r.assignments, assignmentKey(agentName, branchID))
	return nil
}

func (r *memoryRepository) ListAgentAssignments(ctx context.Context, branchID uuid.UUID) ([]*types.AgentAssignment, error) {
	defer r.rlock(ctx)()

	out := make([]*types.AgentAssignment, 0)
	for _, a := range r.assignments {
		if a.BranchID == branchID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentName < out[j].AgentName })
	return out, nil
}

// --- Labels ----------------------------------------------------------

func (r *memoryRepository) CreateLabel(ctx context.Context, l *types.Label) error {
	defer r.lock(ctx)()

	if _, exists := r.labelsByName[l.Name]; exists {
		return fmt.Errorf("label %q already exists", l.Name)
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	r.labels[l.ID] = l
	r.labelsByName[l.Name] = l.ID
	return nil
}

func (r *memoryRepository) GetLabelByName(ctx context.Context, name string) (*types.Label, error) {
	defer r.rlock(ctx)()

	id, ok := r.labelsByName[name]
	if !ok {
		return nil, fmt.Errorf("label %q not found", name)
	}
	return r.labels[id], nil
}

func (r *memoryRepository) ListLabels(ctx context.Context) ([]*types.Label, error) {
	defer r.rlock(ctx)()

	out := make([]*types.Label, 0, len(r.labels))
	for _, l := range r.labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) DeleteLabel(ctx context.Context, id uuid.UUID) error {
	defer r.lock(ctx)()

	l, ok := r.labels[id]
	if !ok {
		return fmt.Errorf("label %s not found", id)
	}
	delete(r.labelsByName, l.Name)
	delete(r.labels, id)
	for taskID, names := range r.taskLabels {
		delete(names, l.Name)
		r.taskLabels[taskID] = names
	}
	return nil
}

func (r *memoryRepository) AttachLabel(ctx context.Context, taskID uuid.UUID, labelName string) error {
	defer r.lock(ctx)()

	t, ok := r.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	if _, ok := r.labelsByName[labelName]; !ok {
		return fmt.Errorf("label %q not found", labelName)
	}
	if r.taskLabels[taskID] == nil {
		r.taskLabels[taskID] = make(map[string]bool)
	}
	if r.taskLabels[taskID][labelName] {
		return nil
	}
	r.taskLabels[taskID][labelName] = true
	t.Labels = append(t.Labels, labelName)
	return nil
}

func (r *memoryRepository) DetachLabel(ctx context.Context, taskID uuid.UUID, labelName string) error {
	defer r.lock(ctx)()

	delete(r.taskLabels[taskID], labelName)
	if t, ok := r.tasks[taskID]; ok {
		t.Labels = removeString(t.Labels, labelName)
	}
	return nil
}

// --- small helpers -----------------------------------------------------

func containsUUID(list []uuid.UUID, target uuid.UUID) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func removeUUID(list []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := list[:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func removeString(list []string, target string) []string {
	out := list[:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// inTxKey marks a context as already running inside WithTx, so individual
// methods called from fn skip re-acquiring the (non-reentrant) mutex that
// WithTx already holds. Calls made outside WithTx take the lock themselves.
type inTxKey struct{}

func (r *memoryRepository) lock(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *memoryRepository) rlock(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	r.mu.RLock()
	return r.mu.RUnlock
}
