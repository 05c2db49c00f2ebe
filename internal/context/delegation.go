package context

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ctxforge/taskmcp/internal/errors"
	"github.com/ctxforge/taskmcp/internal/types"
)

// DelegationEngine persists delegation requests, decides auto-apply vs
// review-queue, and applies approved delegations.
type DelegationEngine struct {
	repo     types.Repository
	resolver *Resolver
}

// NewDelegationEngine builds a DelegationEngine sharing the resolver's
// repository and cache so applied delegations invalidate the same cache.
func NewDelegationEngine(repo types.Repository, resolver *Resolver) *DelegationEngine {
	return &DelegationEngine{repo: repo, resolver: resolver}
}

// Delegate enqueues a ContextDelegation and, per spec §4.3's policy,
// immediately applies it when autoDelegated is true and the target is
// project or branch; a global target always queues for review regardless
// of autoDelegated.
func (e *DelegationEngine) Delegate(ctx context.Context, sourceLevel types.Level, sourceID string, targetLevel types.Level, targetID string, data map[string]interface{}, reason string, autoDelegated bool) (*types.ContextDelegation, error) {
	d := &types.ContextDelegation{
		ID:            uuid.New(),
		SourceLevel:   sourceLevel,
		SourceID:      sourceID,
		TargetLevel:   targetLevel,
		TargetID:      targetID,
		DelegatedData: data,
		Reason:        reason,
		AutoDelegated: autoDelegated,
	}
	if err := e.repo.CreateDelegation(ctx, d); err != nil {
		return nil, err
	}

	if autoDelegated && (targetLevel == types.LevelProject || targetLevel == types.LevelBranch) {
		if err := e.apply(ctx, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// apply deep-merges the delegation's data into the target context (the
// repository update bumps its version), marks the delegation
// processed+approved, and invalidates downstream caches. The merge does no
// type check against the target's fields: a delegated non-object value
// replaces the target's value even where that value is an object. The
// delegation is rejected only when the target context is missing or the
// update fails.
func (e *DelegationEngine) apply(ctx context.Context, d *types.ContextDelegation) error {
	target, err := e.repo.GetContext(ctx, d.TargetLevel, d.TargetID)
	if err != nil {
		reason := fmt.Sprintf("target context not found: %v", err)
		if persistErr := e.persistRejection(ctx, d, reason); persistErr != nil {
			return persistErr
		}
		return apperrors.ValidationError("apply_delegation", fmt.Errorf("%s", reason))
	}

	target.Data = deepMerge(target.Data, d.DelegatedData)
	if err := e.repo.UpdateContext(ctx, target); err != nil {
		reason := fmt.Sprintf("failed to apply delegated data: %v", err)
		if persistErr := e.persistRejection(ctx, d, reason); persistErr != nil {
			return persistErr
		}
		return apperrors.ValidationError("apply_delegation", fmt.Errorf("%s", reason))
	}
	e.resolver.cache.Invalidate(d.TargetLevel, d.TargetID)

	approved := true
	d.Approved = &approved
	d.Processed = true
	now := time.Now()
	d.ProcessedAt = &now
	return e.repo.UpdateDelegation(ctx, d)
}

// persistRejection marks d processed+unapproved with reason, leaving source
// and target contexts untouched.
func (e *DelegationEngine) persistRejection(ctx context.Context, d *types.ContextDelegation, reason string) error {
	approved := false
	d.Approved = &approved
	d.Processed = true
	d.RejectedReason = reason
	now := time.Now()
	d.ProcessedAt = &now
	return e.repo.UpdateDelegation(ctx, d)
}

// Approve applies a pending, non-auto-delegated delegation (e.g. one
// queued for global review).
func (e *DelegationEngine) Approve(ctx context.Context, id uuid.UUID) (*types.ContextDelegation, error) {
	d, err := e.repo.GetDelegation(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Processed {
		return nil, apperrors.ConflictingState("approve_delegation", fmt.Errorf("delegation %s already processed", id))
	}
	if err := e.apply(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Reject marks a pending delegation processed and unapproved, leaving the
// source and target contexts unchanged.
func (e *DelegationEngine) Reject(ctx context.Context, id uuid.UUID, reason string) (*types.ContextDelegation, error) {
	d, err := e.repo.GetDelegation(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Processed {
		return nil, apperrors.ConflictingState("reject_delegation", fmt.Errorf("delegation %s already processed", id))
	}
	if err := e.persistRejection(ctx, d, reason); err != nil {
		return nil, err
	}
	return d, nil
}

// PendingReviewQueue lists unprocessed delegations targeting targetLevel,
// surfaced via manage_context's pending_delegations action.
func (e *DelegationEngine) PendingReviewQueue(ctx context.Context, targetLevel types.Level) ([]*types.ContextDelegation, error) {
	return e.repo.ListPendingDelegations(ctx, targetLevel)
}
