// Package types defines the core domain models and repository interfaces for
// the task-and-context orchestration server.
//
// The central shapes are a four-level project/branch/task/subtask hierarchy
// and a parallel four-level context hierarchy (global, project, branch,
// task) that the resolver in internal/context merges top-down. All
// identifiers are UUIDs in canonical string form except the global context,
// whose id is the literal sentinel GlobalContextID.
package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Level identifies one tier of the context inheritance chain.
type Level string

const (
	LevelGlobal  Level = "global"
	LevelProject Level = "project"
	LevelBranch  Level = "branch"
	LevelTask    Level = "task"
)

// GlobalContextID is the fixed id of the single GlobalContext row.
const GlobalContextID = "global_singleton"

// TaskStatus is the task lifecycle state. See internal/task for the
// transition rules between these states.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusTesting    TaskStatus = "testing"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority orders tasks for next-task selection; Critical outranks Urgent
// outranks High outranks Medium outranks Low.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityUrgent   TaskPriority = "urgent"
	TaskPriorityCritical TaskPriority = "critical"
)

// priorityRank gives a higher number to a higher priority so callers can sort
// with a plain numeric comparison instead of re-deriving the order.
var priorityRank = map[TaskPriority]int{
	TaskPriorityCritical: 5,
	TaskPriorityUrgent:   4,
	TaskPriorityHigh:     3,
	TaskPriorityMedium:   2,
	TaskPriorityLow:      1,
}

// Rank returns the relative ordering of p, higher is more urgent. Unknown
// values rank below TaskPriorityLow.
func (p TaskPriority) Rank() int {
	return priorityRank[p]
}

// EstimatedEffort buckets a task's expected size; the server never derives
// hours from it, it is an opaque size signal for callers.
type EstimatedEffort string

const (
	EffortTrivial EstimatedEffort = "trivial"
	EffortSmall   EstimatedEffort = "small"
	EffortMedium  EstimatedEffort = "medium"
	EffortLarge   EstimatedEffort = "large"
	EffortXLarge  EstimatedEffort = "xlarge"
)

// ProjectStatus is the lifecycle state of a Project.
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

// BranchStatus is the lifecycle state of a Branch. The spec leaves the
// branch status enum open; these values mirror the task states a branch
// aggregates so "get_statistics" can report a branch as done once every
// task under it is.
type BranchStatus string

const (
	BranchStatusActive    BranchStatus = "active"
	BranchStatusBlocked   BranchStatus = "blocked"
	BranchStatusCompleted BranchStatus = "completed"
	BranchStatusArchived  BranchStatus = "archived"
)

// Project is the top-level container owning branches and a single
// ProjectContext.
type Project struct {
	ID          uuid.UUID     `json:"id"`
	UserID      string        `json:"user_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Branch groups tasks under a project. TaskCount and CompletedTaskCount are
// denormalized and must be recomputed by the task lifecycle service on every
// task status change (spec invariant: CompletedTaskCount <= TaskCount).
type Branch struct {
	ID                 uuid.UUID    `json:"id"`
	ProjectID          uuid.UUID    `json:"project_id"`
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	Priority           TaskPriority `json:"priority"`
	Status             BranchStatus `json:"status"`
	AssignedAgentID    *string      `json:"assigned_agent_id,omitempty"`
	TaskCount          int          `json:"task_count"`
	CompletedTaskCount int          `json:"completed_task_count"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Task is the unit of work tracked by the lifecycle service. ContextID is
// set once a TaskContext has been created for the task, either explicitly
// or by the completion gate's auto-create behavior.
type Task struct {
	ID                uuid.UUID       `json:"id"`
	BranchID          uuid.UUID       `json:"branch_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Status            TaskStatus      `json:"status"`
	Priority          TaskPriority    `json:"priority"`
	Details           string          `json:"details"`
	EstimatedEffort    EstimatedEffort `json:"estimated_effort"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	ContextID         *uuid.UUID      `json:"context_id,omitempty"`
	CompletionSummary string          `json:"completion_summary"`
	TestingNotes      string          `json:"testing_notes"`
	Assignees         []string        `json:"assignees,omitempty"`
	Labels            []string        `json:"labels,omitempty"`
	Dependencies      []uuid.UUID     `json:"dependencies,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Subtask is a nested unit of work under a Task. Completing a subtask always
// sets ProgressPercentage to 100 and triggers the parent's progress rollup.
type Subtask struct {
	ID                 uuid.UUID    `json:"id"`
	TaskID              uuid.UUID    `json:"task_id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Status              TaskStatus   `json:"status"`
	Priority            TaskPriority `json:"priority"`
	Assignees           []string     `json:"assignees,omitempty"`
	ProgressPercentage  int          `json:"progress_percentage"`
	ProgressNotes       string       `json:"progress_notes"`
	Blockers            string       `json:"blockers"`
	CompletionSummary   string       `json:"completion_summary"`
	ImpactOnParent      string       `json:"impact_on_parent"`
	InsightsFound       []Insight    `json:"insights_found,omitempty"`
	ChallengesOvercome  string       `json:"challenges_overcome"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
	CompletedAt         *time.Time   `json:"completed_at,omitempty"`
}

// Insight is one entry of a subtask's insights_found list. AutoDelegate
// marks it as reusable beyond the task, which the sync service turns into a
// ContextDelegation targeting the project context on completion.
type Insight struct {
	Text         string `json:"text"`
	AutoDelegate bool   `json:"auto_delegate"`
}

// ContextRecord is the shared shape of all four context kinds. Which entity
// it belongs to is determined by (Level, ID): a GlobalContext always has
// ID == GlobalContextID, a ProjectContext's ID equals its project's id, and
// so on down the chain.
type ContextRecord struct {
	Level               Level                  `json:"level"`
	ID                   string                 `json:"id"`
	Data                 map[string]interface{} `json:"data"`
	LocalOverrides       map[string]interface{} `json:"local_overrides"`
	DelegationTriggers   map[string]interface{} `json:"delegation_triggers"`
	InheritanceDisabled  bool                   `json:"inheritance_disabled"`
	Version              int                    `json:"version"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// ResolvedContext is the output of the resolver's merge over the
// inheritance chain.
type ResolvedContext struct {
	Level            Level                  `json:"level"`
	ID               string                 `json:"id"`
	Data             map[string]interface{} `json:"data"`
	InheritanceChain []string               `json:"inheritance_chain"`
	FromCache        bool                   `json:"from_cache"`
	ResolvedAt       time.Time              `json:"resolved_at"`
}

// ContextDelegation is a queued upward write of context data, created
// explicitly via manage_context.delegate or implicitly by the sync service
// when a subtask's insight is flagged auto_delegate.
type ContextDelegation struct {
	ID             uuid.UUID              `json:"id"`
	SourceLevel    Level                  `json:"source_level"`
	SourceID       string                 `json:"source_id"`
	TargetLevel    Level                  `json:"target_level"`
	TargetID       string                 `json:"target_id"`
	DelegatedData  map[string]interface{} `json:"delegated_data"`
	Reason         string                 `json:"reason"`
	AutoDelegated  bool                   `json:"auto_delegated"`
	Processed      bool                   `json:"processed"`
	Approved       *bool                  `json:"approved,omitempty"`
	RejectedReason string                 `json:"rejected_reason,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	ProcessedAt    *time.Time             `json:"processed_at,omitempty"`
}

// AgentStatus reports whether a cataloged agent is presently available for
// new assignments.
type AgentStatus string

const (
	AgentStatusAvailable AgentStatus = "available"
	AgentStatusBusy      AgentStatus = "busy"
	AgentStatusOffline   AgentStatus = "offline"
)

// Agent is a reference to a named role in the external agent catalog
// (internal/agentcatalog); the core only records assignments against the
// name and never owns the capability definitions.
type Agent struct {
	Name              string      `json:"name"`
	Capabilities      []string    `json:"capabilities,omitempty"`
	Status            AgentStatus `json:"status"`
	AvailabilityScore float64     `json:"availability_score"`
}

// AgentAssignment is the many-to-many join between an Agent and a Branch.
type AgentAssignment struct {
	AgentName  string    `json:"agent_name"`
	BranchID   uuid.UUID `json:"branch_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Label is a reusable tag attached to tasks through a join table.
type Label struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
}

// ProjectFilter narrows manage_project.list results.
type ProjectFilter struct {
	UserID *string
	Status *ProjectStatus
}

// BranchFilter narrows manage_git_branch.list results.
type BranchFilter struct {
	ProjectID *uuid.UUID
	Status    *BranchStatus
}

// TaskFilter narrows manage_task.list results.
type TaskFilter struct {
	BranchID *uuid.UUID
	Status   *TaskStatus
	Priority *TaskPriority
	Label    *string
	Assignee *string
}

// SubtaskFilter narrows manage_subtask.list results.
type SubtaskFilter struct {
	TaskID *uuid.UUID
	Status *TaskStatus
}

// ContextFilter narrows manage_context.list results.
type ContextFilter struct {
	Level *Level
}

// BranchStatistics is the computed shape returned by
// manage_git_branch.get_statistics, derived live from the current task and
// agent-assignment rows rather than stored as a separate table.
type BranchStatistics struct {
	BranchID            uuid.UUID      `json:"branch_id"`
	TaskCount           int            `json:"task_count"`
	CompletedTaskCount  int            `json:"completed_task_count"`
	TasksByStatus       map[string]int `json:"tasks_by_status"`
	TasksByPriority     map[string]int `json:"tasks_by_priority"`
	AssignedAgentCount  int            `json:"assigned_agent_count"`
	OverallProgress     float64        `json:"overall_progress"`
}

// ProjectRepository persists Projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error)
	GetProjectByName(ctx context.Context, userID, name string) (*Project, error)
}

// BranchRepository persists Branches.
type BranchRepository interface {
	CreateBranch(ctx context.Context, b *Branch) error
	GetBranch(ctx context.Context, id uuid.UUID) (*Branch, error)
	UpdateBranch(ctx context.Context, b *Branch) error
	DeleteBranch(ctx context.Context, id uuid.UUID) error
	ListBranches(ctx context.Context, filter BranchFilter) ([]*Branch, error)
	GetBranchByName(ctx context.Context, projectID uuid.UUID, name string) (*Branch, error)
}

// TaskRepository persists Tasks and their dependency edges.
type TaskRepository interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error)
	SearchTasks(ctx context.Context, branchID uuid.UUID, tokens []string) ([]*Task, error)

	AddTaskDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) error
	RemoveTaskDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) error
	GetTaskDependencies(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)
	GetDependentTasks(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)
	ListTaskDependencyEdges(ctx context.Context, projectID uuid.UUID) ([]TaskDependencyEdge, error)
}

// TaskDependencyEdge is a single depends-on edge, used by the dependency
// service to rebuild the graph for cycle detection without loading full
// Task rows.
type TaskDependencyEdge struct {
	TaskID      uuid.UUID
	DependsOnID uuid.UUID
}

// SubtaskRepository persists Subtasks.
type SubtaskRepository interface {
	CreateSubtask(ctx context.Context, s *Subtask) error
	GetSubtask(ctx context.Context, id uuid.UUID) (*Subtask, error)
	UpdateSubtask(ctx context.Context, s *Subtask) error
	DeleteSubtask(ctx context.Context, id uuid.UUID) error
	ListSubtasks(ctx context.Context, filter SubtaskFilter) ([]*Subtask, error)
}

// ContextRepository persists the four context kinds and pending delegations.
type ContextRepository interface {
	CreateContext(ctx context.Context, c *ContextRecord) error
	GetContext(ctx context.Context, level Level, id string) (*ContextRecord, error)
	UpdateContext(ctx context.Context, c *ContextRecord) error
	DeleteContext(ctx context.Context, level Level, id string) error
	ListContexts(ctx context.Context, filter ContextFilter) ([]*ContextRecord, error)
	HasChildContext(ctx context.Context, level Level, id string) (bool, error)

	CreateDelegation(ctx context.Context, d *ContextDelegation) error
	GetDelegation(ctx context.Context, id uuid.UUID) (*ContextDelegation, error)
	UpdateDelegation(ctx context.Context, d *ContextDelegation) error
	ListPendingDelegations(ctx context.Context, targetLevel Level) ([]*ContextDelegation, error)
}

// AgentRepository persists Agents and their branch assignments.
type AgentRepository interface {
	RegisterAgent(ctx context.Context, a *Agent) error
	GetAgent(ctx context.Context, name string) (*Agent, error)
	ListAgents(ctx context.Context) ([]*Agent, error)
	UnregisterAgent(ctx context.Context, name string) error

	AssignAgent(ctx context.Context, a *AgentAssignment) error
	UnassignAgent(ctx context.Context, agentName string, branchID uuid.UUID) error
	ListAgentAssignments(ctx context.Context, branchID uuid.UUID) ([]*AgentAssignment, error)
}

// LabelRepository persists Labels and their attachment to tasks.
type LabelRepository interface {
	CreateLabel(ctx context.Context, l *Label) error
	GetLabelByName(ctx context.Context, name string) (*Label, error)
	ListLabels(ctx context.Context) ([]*Label, error)
	DeleteLabel(ctx context.Context, id uuid.UUID) error

	AttachLabel(ctx context.Context, taskID uuid.UUID, labelName string) error
	DetachLabel(ctx context.Context, taskID uuid.UUID, labelName string) error
}

// Repository is the full persistence surface the controllers and domain
// services are built against; sqlite and inmemory each provide one
// implementation. WithTx scopes a sequence of calls to a single transaction
// (sqlite commits or rolls back their writes together; the in-memory
// repository only serializes them). Cache invalidations made inside it are
// not undone by a rollback.
type Repository interface {
	ProjectRepository
	BranchRepository
	TaskRepository
	SubtaskRepository
	ContextRepository
	AgentRepository
	LabelRepository

	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	Close() error
	Ping(ctx context.Context) error
}
