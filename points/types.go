/*
Package points provides the core types and contracts for the household
points economy.

PURPOSE:
  This package contains the shared domain model used by every other package:
  identifier types, the Account/Reward/Redemption/Task records, their status
  enums, the error taxonomy, and the persistence contracts (Store, TxStore).

KEY CONCEPTS IN THIS FILE (types.go):
  - Account:    The balance record for one user. Balance is never negative.
  - Reward:     A catalog entry a user can redeem points against.
  - Redemption: A redeem request tracked through an approval state machine.
  - Task:       A household task whose completion credits the assignee.

DESIGN PRINCIPLES:
  1. Type Safety: Strong typing for IDs prevents mixing user/reward/task IDs
  2. Explicit Context: Family and actor IDs are always passed as parameters,
     never read from ambient state
  3. Integer Points: Balances are whole points (int64), no fractional units

SEE ALSO:
  - errors.go: Error taxonomy
  - store.go: Persistence contracts
  - ledger/: Balance mutation service
*/
package points

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type FamilyID string
type RewardID string
type RedemptionID string
type TaskID string

// =============================================================================
// ACCOUNT - Per-user point balance
// =============================================================================

// Account is the balance record for one user.
//
// INVARIANT: Balance >= 0 at every committed state. The ledger package is
// the only writer and enforces this inside a store transaction.
//
// Accounts are created lazily on first ledger access and never deleted
// while the user exists.
type Account struct {
	UserID  UserID
	Balance int64
}

// =============================================================================
// REWARD - Catalog entry
// =============================================================================

// Reward is a redeemable catalog entry. Owned by the catalog package; the
// ledger and workflow only read PointCost, RequiresApproval and FamilyID.
type Reward struct {
	ID               RewardID
	FamilyID         FamilyID
	Name             string
	Description      string
	PointCost        int64 // non-negative
	RequiresApproval bool
	CreatedBy        UserID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// =============================================================================
// REDEMPTION - Approval state machine record
// =============================================================================

type RedemptionStatus string

const (
	RedemptionPending  RedemptionStatus = "pending"
	RedemptionRejected RedemptionStatus = "rejected"
	RedemptionRedeemed RedemptionStatus = "redeemed"
)

// Terminal reports whether the status admits no further transitions.
func (s RedemptionStatus) Terminal() bool {
	return s == RedemptionRejected || s == RedemptionRedeemed
}

// Redemption tracks one redeem request through the approval workflow.
// Created by redemption.Workflow; mutated only by its transition methods;
// never mutated after reaching a terminal status.
type Redemption struct {
	ID          RedemptionID
	RewardID    RewardID
	UserID      UserID
	Status      RedemptionStatus
	ApproverID  *UserID
	RequestedAt time.Time
	DecidedAt   *time.Time
}

// Decision is a guardian's verdict on a pending redemption.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// =============================================================================
// TASK - Household task
// =============================================================================

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Task is a household task. Completing it credits Points to the assignee's
// account exactly once.
//
// CreditedAt is the persisted idempotency guard: it is set the moment the
// completion credit commits, so re-saving an already-completed task can
// never credit again even if the status edge check were bypassed.
type Task struct {
	ID          TaskID
	FamilyID    FamilyID
	Title       string
	Description string
	AssigneeID  UserID
	Points      int64 // non-negative
	Status      TaskStatus
	DueDate     *time.Time
	CreditedAt  *time.Time
	CreatedBy   UserID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
