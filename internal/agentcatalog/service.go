package agentcatalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/types"
)

var errNameRequired = errors.New("agent name is required")

// Service implements manage_agent and call_agent over an AgentRepository
// and the read-through Catalog.
type Service struct {
	repo    types.AgentRepository
	catalog *Catalog
}

// NewService builds a Service.
func NewService(repo types.AgentRepository, catalog *Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Register upserts an agent definition and invalidates its cache entry.
func (s *Service) Register(ctx context.Context, agent *types.Agent) error {
	if agent.Name == "" {
		return apperrors.ValidationError("manage_agent.register", errNameRequired)
	}
	if agent.Status == "" {
		agent.Status = types.AgentStatusAvailable
	}
	if err := s.repo.RegisterAgent(ctx, agent); err != nil {
		return err
	}
	s.catalog.Invalidate(agent.Name)
	return nil
}

// Get returns a single agent by name, read-through cached.
func (s *Service) Get(ctx context.Context, name string) (*types.Agent, error) {
	return s.catalog.Get(ctx, name)
}

// List returns every registered agent, read-through cached.
func (s *Service) List(ctx context.Context) ([]*types.Agent, error) {
	return s.catalog.List(ctx)
}

// Unregister removes an agent and invalidates its cache entry.
func (s *Service) Unregister(ctx context.Context, name string) error {
	if err := s.repo.UnregisterAgent(ctx, name); err != nil {
		return err
	}
	s.catalog.Invalidate(name)
	return nil
}

// Assign creates an agent-branch assignment, timestamped now.
func (s *Service) Assign(ctx context.Context, agentName string, branchID uuid.UUID) (*types.AgentAssignment, error) {
	if _, err := s.catalog.Get(ctx, agentName); err != nil {
		return nil, apperrors.NotFound("manage_git_branch.assign_agent", err)
	}
	a := &types.AgentAssignment{AgentName: agentName, BranchID: branchID, AssignedAt: time.Now()}
	if err := s.repo.AssignAgent(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Unassign removes an agent-branch assignment.
func (s *Service) Unassign(ctx context.Context, agentName string, branchID uuid.UUID) error {
	return s.repo.UnassignAgent(ctx, agentName, branchID)
}

// Assignments lists every assignment for a branch.
func (s *Service) Assignments(ctx context.Context, branchID uuid.UUID) ([]*types.AgentAssignment, error) {
	return s.repo.ListAgentAssignments(ctx, branchID)
}

// Call resolves a single agent by name for call_agent, the single-action
// tool that hands back an agent's full descriptor.
func (s *Service) Call(ctx context.Context, name string) (*types.Agent, error) {
	agent, err := s.catalog.Get(ctx, name)
	if err != nil {
		return nil, apperrors.NotFound("call_agent", err)
	}
	return agent, nil
}
