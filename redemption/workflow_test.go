package redemption_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth/points-engine/ledger"
	"github.com/hearth/points-engine/points"
	"github.com/hearth/points-engine/redemption"
	"github.com/hearth/points-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	workflow *redemption.Workflow
	ledger   *ledger.Service
	store    *sqlite.Store
}

func newFixture(t *testing.T) *fixture {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{
		workflow: redemption.New(store),
		ledger:   ledger.New(store),
		store:    store,
	}
}

func (f *fixture) addReward(t *testing.T, id string, family points.FamilyID, cost int64, requiresApproval bool) *points.Reward {
	t.Helper()
	now := time.Now().UTC()
	reward := &points.Reward{
		ID:               points.RewardID(id),
		FamilyID:         family,
		Name:             "reward " + id,
		PointCost:        cost,
		RequiresApproval: requiresApproval,
		CreatedBy:        "parent-1",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, f.store.CreateReward(context.Background(), reward))
	return reward
}

func (f *fixture) fund(t *testing.T, user points.UserID, amount int64) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), user, amount)
	require.NoError(t, err)
}

// =============================================================================
// IMMEDIATE REDEMPTION TESTS
// =============================================================================

func TestWorkflow_ImmediateRedeem_DebitsAndRecords(t *testing.T) {
	// GIVEN: A 50-point reward without approval and a user holding 80
	// WHEN: The user redeems it
	// THEN: The record is Redeemed with the requester as approver, and the
	//       balance drops to 30

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 50, false)
	f.fund(t, "kid-1", 80)

	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionRedeemed, red.Status)
	require.NotNil(t, red.ApproverID)
	assert.Equal(t, points.UserID("kid-1"), *red.ApproverID)
	assert.NotNil(t, red.DecidedAt)

	balance, err := f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)
}

func TestWorkflow_ImmediateRedeem_InsufficientBalance_NoRecord(t *testing.T) {
	// GIVEN: A 50-point reward without approval and a user holding 20
	// WHEN: The user redeems it
	// THEN: ErrInsufficientBalance, no record persisted, balance untouched

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 50, false)
	f.fund(t, "kid-1", 20)

	_, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	assert.ErrorIs(t, err, points.ErrInsufficientBalance)

	reds, err := f.workflow.ListByFamily(ctx, "fam-1")
	require.NoError(t, err)
	assert.Empty(t, reds, "failed redemption must leave no record")

	balance, err := f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)
}

func TestWorkflow_ImmediateRedeem_ZeroCost_Succeeds(t *testing.T) {
	// GIVEN: A free reward without approval and a user with an empty account
	// WHEN: The user redeems it
	// THEN: The record is Redeemed and no debit is attempted

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 0, false)

	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionRedeemed, red.Status)
}

func TestWorkflow_Redeem_UnknownReward_NotFound(t *testing.T) {
	// GIVEN: No rewards exist
	// WHEN: Redeeming an unknown id
	// THEN: ErrRewardNotFound

	f := newFixture(t)

	_, err := f.workflow.Create(context.Background(), "missing", "kid-1", "fam-1")
	assert.ErrorIs(t, err, points.ErrRewardNotFound)
}

func TestWorkflow_Redeem_CrossFamily_Unauthorized(t *testing.T) {
	// GIVEN: A reward belonging to fam-2
	// WHEN: A fam-1 user tries to redeem it
	// THEN: ErrUnauthorized, no record persisted

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-2", 10, false)
	f.fund(t, "kid-1", 100)

	_, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	assert.ErrorIs(t, err, points.ErrUnauthorized)

	reds, err := f.workflow.ListByFamily(ctx, "fam-2")
	require.NoError(t, err)
	assert.Empty(t, reds)
}

// =============================================================================
// APPROVAL WORKFLOW TESTS
// =============================================================================

func TestWorkflow_ApprovalGated_PendingWithoutBalanceCheck(t *testing.T) {
	// GIVEN: A 500-point approval-gated reward and a user holding only 10
	// WHEN: The user requests it
	// THEN: A Pending record is created and the balance is untouched

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 500, true)
	f.fund(t, "kid-1", 10)

	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionPending, red.Status)
	assert.Nil(t, red.ApproverID)
	assert.Nil(t, red.DecidedAt)

	balance, err := f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}

func TestWorkflow_Approve_DebitsAtDecisionTime(t *testing.T) {
	// GIVEN: A Pending redemption for an 80-point reward, requested while
	//        the user held 10, then topped up to 100
	// WHEN: A guardian approves
	// THEN: Redeemed, approver recorded, balance drops to 20

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 80, true)
	f.fund(t, "kid-1", 10)

	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)

	f.fund(t, "kid-1", 90)

	decided, err := f.workflow.Decide(ctx, red.ID, "parent-1", "fam-1", points.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionRedeemed, decided.Status)
	require.NotNil(t, decided.ApproverID)
	assert.Equal(t, points.UserID("parent-1"), *decided.ApproverID)

	balance, err := f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)
}

func TestWorkflow_Approve_InsufficientBalance_StaysPending(t *testing.T) {
	// GIVEN: A Pending redemption for an 80-point reward and a user holding 10
	// WHEN: A guardian approves
	// THEN: ErrInsufficientBalance, the record REMAINS Pending, and a retry
	//       after topping up succeeds

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 80, true)
	f.fund(t, "kid-1", 10)

	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)

	_, err = f.workflow.Decide(ctx, red.ID, "parent-1", "fam-1", points.DecisionApprove)
	assert.ErrorIs(t, err, points.ErrInsufficientBalance)

	reloaded, err := f.workflow.Get(ctx, red.ID, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionPending, reloaded.Status, "failed approval must leave the record Pending")
	assert.Nil(t, reloaded.ApproverID)

	// Retry after the balance recovers.
	f.fund(t, "kid-1", 100)
	decided, err := f.workflow.Decide(ctx, red.ID, "parent-1", "fam-1", points.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionRedeemed, decided.Status)
}

func TestWorkflow_Reject_NeverTouchesBalance(t *testing.T) {
	// GIVEN: A Pending redemption and a user holding 100
	// WHEN: A guardian rejects
	// THEN: Rejected, balance unchanged

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 80, true)
	f.fund(t, "kid-1", 100)

	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)

	decided, err := f.workflow.Decide(ctx, red.ID, "parent-1", "fam-1", points.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionRejected, decided.Status)

	balance, err := f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestWorkflow_Decide_TerminalStates_Rejected(t *testing.T) {
	// GIVEN: A redemption already decided (Rejected)
	// WHEN: Deciding it again, either way
	// THEN: InvalidTransitionError; terminal states cannot be resurrected

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 80, true)
	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)

	_, err = f.workflow.Decide(ctx, red.ID, "parent-1", "fam-1", points.DecisionReject)
	require.NoError(t, err)

	for _, decision := range []points.Decision{points.DecisionApprove, points.DecisionReject} {
		_, err = f.workflow.Decide(ctx, red.ID, "parent-1", "fam-1", decision)
		assert.ErrorIs(t, err, points.ErrInvalidStateTransition, "decision %q on terminal record", decision)

		var transErr *points.InvalidTransitionError
		require.ErrorAs(t, err, &transErr)
		assert.Equal(t, points.RedemptionRejected, transErr.Status)
	}
}

func TestWorkflow_Decide_UnknownDecision_Validation(t *testing.T) {
	// GIVEN: A Pending redemption
	// WHEN: Deciding with a decision that is neither approve nor reject
	// THEN: ErrValidation before anything is loaded

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 80, true)
	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)

	_, err = f.workflow.Decide(ctx, red.ID, "parent-1", "fam-1", "maybe")
	assert.ErrorIs(t, err, points.ErrValidation)
}

func TestWorkflow_Decide_CrossFamily_Unauthorized(t *testing.T) {
	// GIVEN: A Pending redemption in fam-1
	// WHEN: A guardian from fam-2 decides it
	// THEN: ErrUnauthorized and the record stays Pending

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 80, true)
	red, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)

	_, err = f.workflow.Decide(ctx, red.ID, "stranger", "fam-2", points.DecisionApprove)
	assert.ErrorIs(t, err, points.ErrUnauthorized)

	reloaded, err := f.workflow.Get(ctx, red.ID, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionPending, reloaded.Status)
}

// =============================================================================
// NO-DOUBLE-SPEND TESTS
// =============================================================================

func TestWorkflow_ConcurrentRedeems_OnlyOneWins(t *testing.T) {
	// GIVEN: A 60-point reward without approval and a user holding 100
	// WHEN: Two concurrent redeem requests race
	// THEN: Exactly one succeeds; the combined cost (120) cannot both clear

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 60, false)
	f.fund(t, "kid-1", 100)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "only one 60-point redemption fits in 100")

	balance, err := f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestWorkflow_ListByFamily_NewestFirst(t *testing.T) {
	// GIVEN: Three redemptions created in sequence
	// WHEN: Listing the family history
	// THEN: The most recent request comes first

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 10, true)

	first, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)
	second, err := f.workflow.Create(ctx, "r1", "kid-2", "fam-1")
	require.NoError(t, err)
	third, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)

	reds, err := f.workflow.ListByFamily(ctx, "fam-1")
	require.NoError(t, err)
	require.Len(t, reds, 3)
	assert.Equal(t, third.ID, reds[0].ID)
	assert.Equal(t, second.ID, reds[1].ID)
	assert.Equal(t, first.ID, reds[2].ID)
}

func TestWorkflow_CountPendingByReward(t *testing.T) {
	// GIVEN: Two Pending and one Rejected redemption for a reward
	// WHEN: Counting pending and asking the deletion guard
	// THEN: Count is 2 and deletion is blocked

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "r1", "fam-1", 10, true)

	_, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)
	_, err = f.workflow.Create(ctx, "r1", "kid-2", "fam-1")
	require.NoError(t, err)
	rejected, err := f.workflow.Create(ctx, "r1", "kid-1", "fam-1")
	require.NoError(t, err)
	_, err = f.workflow.Decide(ctx, rejected.ID, "parent-1", "fam-1", points.DecisionReject)
	require.NoError(t, err)

	n, err := f.workflow.CountPendingByReward(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := f.workflow.CanDeleteReward(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// FULL LIFECYCLE
// =============================================================================

func TestWorkflow_Lifecycle_RedeemThenStarvedApproval(t *testing.T) {
	// GIVEN: A user holding 100 points, an 80-point instant reward and a
	//        50-point approval-gated reward
	// WHEN: The instant reward is redeemed, redeemed again, the gated reward
	//       is requested, approved without funds, and finally rejected
	// THEN: Exactly one debit happens; every failed or rejected step leaves
	//       the balance at 20

	f := newFixture(t)
	ctx := context.Background()

	f.addReward(t, "instant", "fam-1", 80, false)
	f.addReward(t, "gated", "fam-1", 50, true)
	f.fund(t, "kid-1", 100)

	// First redemption of the instant reward succeeds and debits.
	red, err := f.workflow.Create(ctx, "instant", "kid-1", "fam-1")
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionRedeemed, red.Status)

	balance, err := f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)

	// A second attempt fails and persists nothing.
	_, err = f.workflow.Create(ctx, "instant", "kid-1", "fam-1")
	require.ErrorIs(t, err, points.ErrInsufficientBalance)

	balance, err = f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)

	// The gated reward goes Pending without any balance check.
	pending, err := f.workflow.Create(ctx, "gated", "kid-1", "fam-1")
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionPending, pending.Status)

	// Approving with only 20 points fails and leaves it Pending.
	_, err = f.workflow.Decide(ctx, pending.ID, "parent-1", "fam-1", points.DecisionApprove)
	require.ErrorIs(t, err, points.ErrInsufficientBalance)

	stuck, err := f.workflow.Get(ctx, pending.ID, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionPending, stuck.Status)

	// Rejecting settles it without touching the balance.
	decided, err := f.workflow.Decide(ctx, pending.ID, "parent-1", "fam-1", points.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, points.RedemptionRejected, decided.Status)

	balance, err = f.ledger.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)
}
