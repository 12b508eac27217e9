/*
Package catalog manages the family reward catalog.

PURPOSE:
  CRUD over reward definitions, scoped to a family on every operation.
  The ledger and workflow treat rewards as read-only lookups; this package
  is the only writer.

DELETION GUARD:
  A reward with Pending redemptions cannot be deleted: those redemptions
  still reference it and a guardian still owes a decision. Delete consults
  the workflow's CanDeleteReward and fails with ErrPendingRedemptions until
  the queue drains.

FAMILY SCOPING:
  Reads and writes against a reward from another family return
  ErrRewardNotFound rather than revealing the reward exists. (Redeeming is
  different: the workflow returns ErrUnauthorized there, because the reward
  id was obtained legitimately and the failure is an access decision.)
*/
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearth/points-engine/points"
)

// ErrPendingRedemptions is returned when deleting a reward that still has
// pending redemptions awaiting a decision.
var ErrPendingRedemptions = errors.New("reward has pending redemptions")

// DeletionGuard is the workflow-side check consulted before any deletion.
// Satisfied by *redemption.Workflow.
type DeletionGuard interface {
	CanDeleteReward(ctx context.Context, rewardID points.RewardID) (bool, error)
}

// Service manages reward definitions for families.
type Service struct {
	store points.TxStore
	guard DeletionGuard
}

// New creates a catalog service. guard must not be nil.
func New(store points.TxStore, guard DeletionGuard) *Service {
	return &Service{store: store, guard: guard}
}

// CreateRewardInput carries the caller-supplied fields for a new reward.
type CreateRewardInput struct {
	Name             string
	Description      string
	PointCost        int64
	RequiresApproval bool
}

// Create validates and inserts a new reward for the family.
func (s *Service) Create(ctx context.Context, familyID points.FamilyID, createdBy points.UserID, in CreateRewardInput) (*points.Reward, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("reward name is required: %w", points.ErrValidation)
	}
	if in.PointCost < 0 {
		return nil, fmt.Errorf("point cost must be non-negative, got %d: %w", in.PointCost, points.ErrValidation)
	}

	now := time.Now().UTC()
	reward := &points.Reward{
		ID:               points.RewardID(uuid.NewString()),
		FamilyID:         familyID,
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		PointCost:        in.PointCost,
		RequiresApproval: in.RequiresApproval,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateReward(ctx, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// Get returns one reward, scoped to the family.
func (s *Service) Get(ctx context.Context, rewardID points.RewardID, familyID points.FamilyID) (*points.Reward, error) {
	reward, err := s.store.Reward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward.FamilyID != familyID {
		return nil, fmt.Errorf("reward %s: %w", rewardID, points.ErrRewardNotFound)
	}
	return reward, nil
}

// List returns the family's rewards ordered by point cost ascending.
func (s *Service) List(ctx context.Context, familyID points.FamilyID) ([]*points.Reward, error) {
	return s.store.RewardsByFamily(ctx, familyID)
}

// UpdateRewardInput carries optional updates; nil fields are left unchanged.
type UpdateRewardInput struct {
	Name             *string
	Description      *string
	PointCost        *int64
	RequiresApproval *bool
}

// Update applies the provided fields to an existing reward.
func (s *Service) Update(ctx context.Context, rewardID points.RewardID, familyID points.FamilyID, in UpdateRewardInput) (*points.Reward, error) {
	var reward *points.Reward
	err := s.store.WithTx(ctx, func(st points.Store) error {
		var err error
		reward, err = st.Reward(ctx, rewardID)
		if err != nil {
			return err
		}
		if reward.FamilyID != familyID {
			return fmt.Errorf("reward %s: %w", rewardID, points.ErrRewardNotFound)
		}

		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return fmt.Errorf("reward name is required: %w", points.ErrValidation)
			}
			reward.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			reward.Description = *in.Description
		}
		if in.PointCost != nil {
			if *in.PointCost < 0 {
				return fmt.Errorf("point cost must be non-negative, got %d: %w", *in.PointCost, points.ErrValidation)
			}
			reward.PointCost = *in.PointCost
		}
		if in.RequiresApproval != nil {
			reward.RequiresApproval = *in.RequiresApproval
		}
		reward.UpdatedAt = time.Now().UTC()
		return st.UpdateReward(ctx, reward)
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// Delete removes a reward, refusing while pending redemptions exist.
func (s *Service) Delete(ctx context.Context, rewardID points.RewardID, familyID points.FamilyID) error {
	reward, err := s.store.Reward(ctx, rewardID)
	if err != nil {
		return err
	}
	if reward.FamilyID != familyID {
		return fmt.Errorf("reward %s: %w", rewardID, points.ErrRewardNotFound)
	}

	ok, err := s.guard.CanDeleteReward(ctx, rewardID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reward %s: %w", rewardID, ErrPendingRedemptions)
	}
	return s.store.DeleteReward(ctx, rewardID)
}
