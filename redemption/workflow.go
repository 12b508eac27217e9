/*
Package redemption implements the reward redemption approval state machine.

STATES AND TRANSITIONS:

  Requested ── no approval, balance >= cost ──► Redeemed   [debit executes]
  Requested ── no approval, balance <  cost ──► fails, NO record persisted
  Requested ── requires approval ─────────────► Pending    [no balance check]
  Pending   ── Approve, balance >= cost ──────► Redeemed   [debit executes]
  Pending   ── Approve, balance <  cost ──────► fails, stays Pending
  Pending   ── Reject ────────────────────────► Rejected   [no balance change]

  Redeemed and Rejected are terminal. Pending has no timeout: it is a durable
  wait for a guardian's decision, not a scheduled job.

NO DOUBLE-SPEND:
  For rewards without approval, the balance check, the debit, and the record
  insert happen inside ONE store transaction. Two concurrent requests whose
  combined cost exceeds the balance cannot both succeed: transactions
  serialize, and the loser's check observes the winner's committed debit and
  fails with ErrInsufficientBalance.

APPROVAL-TIME BALANCE:
  Rewards requiring approval create a Pending record WITHOUT checking the
  balance. The balance may change freely between request and decision, so it
  is only checked when a guardian approves. A failed Approve surfaces
  ErrInsufficientBalance and leaves the record Pending, so the guardian can
  retry once the balance recovers.

SEE ALSO:
  - ledger/: DebitAccount, composed inside this package's transactions
  - catalog/: Uses CanDeleteReward before deleting a reward
*/
package redemption

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hearth/points-engine/ledger"
	"github.com/hearth/points-engine/points"
)

// =============================================================================
// WORKFLOW
// =============================================================================

// Workflow owns creation and transition of redemption records.
type Workflow struct {
	store points.TxStore

	// now is swappable for tests.
	now func() time.Time
}

// New creates a redemption workflow over the given store.
func New(store points.TxStore) *Workflow {
	return &Workflow{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create handles a redeem request from userID (of familyID) against rewardID.
//
// Rewards outside the requester's family fail with ErrUnauthorized. Rewards
// without approval are checked, debited and recorded as Redeemed in one
// transaction; on an insufficient balance NO record is persisted. Rewards
// requiring approval produce a Pending record and leave the balance alone.
func (w *Workflow) Create(ctx context.Context, rewardID points.RewardID, userID points.UserID, familyID points.FamilyID) (*points.Redemption, error) {
	var red *points.Redemption

	err := w.store.WithTx(ctx, func(st points.Store) error {
		reward, err := st.Reward(ctx, rewardID)
		if err != nil {
			return err
		}
		if reward.FamilyID != familyID {
			return fmt.Errorf("reward %s: %w", rewardID, points.ErrUnauthorized)
		}

		now := w.now()
		red = &points.Redemption{
			ID:          points.RedemptionID(uuid.NewString()),
			RewardID:    rewardID,
			UserID:      userID,
			RequestedAt: now,
		}

		if reward.RequiresApproval {
			red.Status = points.RedemptionPending
			return st.CreateRedemption(ctx, red)
		}

		// Immediate redemption: check + debit + insert, all or nothing.
		if reward.PointCost > 0 {
			if _, err := ledger.DebitAccount(ctx, st, userID, reward.PointCost); err != nil {
				return err
			}
		}
		red.Status = points.RedemptionRedeemed
		red.ApproverID = &userID // self-served, no guardian involved
		red.DecidedAt = &now
		return st.CreateRedemption(ctx, red)
	})
	if err != nil {
		return nil, err
	}
	return red, nil
}

// Decide applies a guardian's decision to a Pending redemption.
//
// Deciding a redemption whose reward belongs to another family fails with
// ErrUnauthorized. Deciding a non-Pending redemption fails with
// InvalidTransitionError. Reject never touches the balance. Approve debits
// the reward's cost; if the balance doesn't cover it the redemption REMAINS
// Pending and ErrInsufficientBalance is returned.
func (w *Workflow) Decide(ctx context.Context, redemptionID points.RedemptionID, approverID points.UserID, familyID points.FamilyID, decision points.Decision) (*points.Redemption, error) {
	if decision != points.DecisionApprove && decision != points.DecisionReject {
		return nil, fmt.Errorf("unknown decision %q: %w", decision, points.ErrValidation)
	}

	var red *points.Redemption

	err := w.store.WithTx(ctx, func(st points.Store) error {
		var err error
		red, err = st.Redemption(ctx, redemptionID)
		if err != nil {
			return err
		}

		reward, err := st.Reward(ctx, red.RewardID)
		if err != nil {
			return err
		}
		if reward.FamilyID != familyID {
			return fmt.Errorf("redemption %s: %w", redemptionID, points.ErrUnauthorized)
		}

		if red.Status != points.RedemptionPending {
			return &points.InvalidTransitionError{RedemptionID: red.ID, Status: red.Status}
		}

		now := w.now()
		if decision == points.DecisionApprove && reward.PointCost > 0 {
			// Rolls back the whole transaction on shortage: the record
			// stays Pending and the guardian can retry later.
			if _, err := ledger.DebitAccount(ctx, st, red.UserID, reward.PointCost); err != nil {
				return err
			}
		}

		if decision == points.DecisionApprove {
			red.Status = points.RedemptionRedeemed
		} else {
			red.Status = points.RedemptionRejected
		}
		red.ApproverID = &approverID
		red.DecidedAt = &now
		return st.UpdateRedemption(ctx, red)
	})
	if err != nil {
		return nil, err
	}
	return red, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// CountPendingByReward returns the number of Pending redemptions for a
// reward. Exposed for the catalog's deletion guard.
func (w *Workflow) CountPendingByReward(ctx context.Context, rewardID points.RewardID) (int, error) {
	return w.store.CountPendingByReward(ctx, rewardID)
}

// CanDeleteReward reports whether a reward has no Pending redemptions and is
// therefore safe to delete. The catalog checks this before any deletion.
func (w *Workflow) CanDeleteReward(ctx context.Context, rewardID points.RewardID) (bool, error) {
	n, err := w.store.CountPendingByReward(ctx, rewardID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// ListByFamily returns a family's redemption history, newest first. This is
// the guardian's approval inbox (filter for Pending client-side or via the
// API layer).
func (w *Workflow) ListByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Redemption, error) {
	return w.store.RedemptionsByFamily(ctx, familyID)
}

// Get returns one redemption, scoped to the caller's family.
func (w *Workflow) Get(ctx context.Context, redemptionID points.RedemptionID, familyID points.FamilyID) (*points.Redemption, error) {
	red, err := w.store.Redemption(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	reward, err := w.store.Reward(ctx, red.RewardID)
	if err != nil {
		return nil, err
	}
	if reward.FamilyID != familyID {
		return nil, fmt.Errorf("redemption %s: %w", redemptionID, points.ErrUnauthorized)
	}
	return red, nil
}
