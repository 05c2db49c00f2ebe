// Package agentcatalog fronts the external, out-of-scope agent-definition
// catalog with a short-TTL read-through cache. The catalog itself (agent
// capability lists, availability scoring) is supplied by a collaborator
// system; this package only owns the caching and lookup contract
// manage_agent and call_agent read through.
package agentcatalog

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ctxforge/taskmcp/internal/types"
)

// Source is the external agent-catalog collaborator. A real deployment
// points this at whatever system owns agent capability definitions; the
// core never persists capability data itself, only the assignment join.
type Source interface {
	Lookup(ctx context.Context, name string) (*types.Agent, error)
	List(ctx context.Context) ([]*types.Agent, error)
}

// RepositorySource adapts the registered-agent rows already persisted via
// AgentRepository into a Source, for deployments with no separate catalog
// collaborator — registration doubles as the catalog entry.
type RepositorySource struct {
	repo types.AgentRepository
}

// NewRepositorySource builds a RepositorySource over repo.
func NewRepositorySource(repo types.AgentRepository) *RepositorySource {
	return &RepositorySource{repo: repo}
}

func (s *RepositorySource) Lookup(ctx context.Context, name string) (*types.Agent, error) {
	return s.repo.GetAgent(ctx, name)
}

func (s *RepositorySource) List(ctx context.Context) ([]*types.Agent, error) {
	return s.repo.ListAgents(ctx)
}

const listCacheKey = "__agent_catalog_list__"

// Catalog is the read-through cache in front of a Source, per spec §5's
// "Agent-catalog data is read-only at runtime" assumption: a short TTL is
// enough to keep reads cheap without ever going stale for long.
type Catalog struct {
	source Source
	cache  *gocache.Cache
}

// New builds a Catalog with the given TTL and cleanup interval.
func New(source Source, ttl, cleanupInterval time.Duration) *Catalog {
	return &Catalog{source: source, cache: gocache.New(ttl, cleanupInterval)}
}

// Get returns the named agent, serving from cache when possible.
func (c *Catalog) Get(ctx context.Context, name string) (*types.Agent, error) {
	if cached, ok := c.cache.Get(name); ok {
		agent := cached.(*types.Agent)
		return agent, nil
	}
	agent, err := c.source.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("agent catalog lookup %q: %w", name, err)
	}
	c.cache.SetDefault(name, agent)
	return agent, nil
}

// List returns every known agent, serving from cache when possible.
func (c *Catalog) List(ctx context.Context) ([]*types.Agent, error) {
	if cached, ok := c.cache.Get(listCacheKey); ok {
		return cached.([]*types.Agent), nil
	}
	agents, err := c.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent catalog list: %w", err)
	}
	c.cache.SetDefault(listCacheKey, agents)
	return agents, nil
}

// Invalidate drops a single cached entry and the list entry, called after
// any registration/unregistration so the cache never serves stale data
// past the next read.
func (c *Catalog) Invalidate(name string) {
	c.cache.Delete(name)
	c.cache.Delete(listCacheKey)
}
