/*
store.go - Persistence contracts for the points economy

PURPOSE:
  Defines the interface between the domain services and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Record access (accounts, rewards, redemptions, tasks)
  TxStore: Store plus WithTx for atomic multi-record operations

ATOMICITY CONTRACT:
  Every balance-touching operation (Credit, Debit, the no-approval branch of
  CreateRedemption, Approve) runs inside WithTx. The implementation must
  guarantee that two transactions touching the same account serialize: the
  later one observes the earlier one's committed balance. The SQLite store
  does this with a single-writer lock around WithTx; a PostgreSQL
  implementation would use SELECT ... FOR UPDATE on the account row.

LAZY ACCOUNTS:
  Account() never fails for a valid user id. If no record exists, a zero
  balance record is created and returned. This mirrors GetBalance's
  "never fails" contract.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for tests

SEE ALSO:
  - ledger/: The only writer of account balances
  - redemption/: Composes reward reads and balance writes in one WithTx
*/
package points

import "context"

// =============================================================================
// STORE - Record access
// =============================================================================

// Store handles persistence of all economy records.
//
// Reads return copies; mutating a returned record does nothing until it is
// written back through the corresponding update method.
type Store interface {
	// Account returns the balance record for a user, creating a zero
	// balance record if none exists. Never fails for a valid user id.
	Account(ctx context.Context, userID UserID) (Account, error)

	// SaveAccount writes an account record. The ledger package is the only
	// intended caller.
	SaveAccount(ctx context.Context, acct Account) error

	// Reward returns a reward by id, or ErrRewardNotFound.
	Reward(ctx context.Context, id RewardID) (*Reward, error)

	// CreateReward inserts a new reward.
	CreateReward(ctx context.Context, r *Reward) error

	// UpdateReward writes back an existing reward, or ErrRewardNotFound.
	UpdateReward(ctx context.Context, r *Reward) error

	// DeleteReward removes a reward, or ErrRewardNotFound. Callers must
	// check the pending-redemption guard first (catalog does).
	DeleteReward(ctx context.Context, id RewardID) error

	// RewardsByFamily returns a family's rewards ordered by point cost
	// ascending.
	RewardsByFamily(ctx context.Context, familyID FamilyID) ([]*Reward, error)

	// Redemption returns a redemption by id, or ErrRedemptionNotFound.
	Redemption(ctx context.Context, id RedemptionID) (*Redemption, error)

	// CreateRedemption inserts a new redemption record.
	CreateRedemption(ctx context.Context, r *Redemption) error

	// UpdateRedemption writes back an existing redemption, or
	// ErrRedemptionNotFound.
	UpdateRedemption(ctx context.Context, r *Redemption) error

	// RedemptionsByFamily returns all redemptions whose reward belongs to
	// the family, newest first.
	RedemptionsByFamily(ctx context.Context, familyID FamilyID) ([]*Redemption, error)

	// CountPendingByReward returns the number of Pending redemptions for a
	// reward. Used by the reward-deletion guard.
	CountPendingByReward(ctx context.Context, rewardID RewardID) (int, error)

	// Task returns a task by id, or ErrTaskNotFound.
	Task(ctx context.Context, id TaskID) (*Task, error)

	// CreateTask inserts a new task.
	CreateTask(ctx context.Context, t *Task) error

	// UpdateTask writes back an existing task, or ErrTaskNotFound.
	UpdateTask(ctx context.Context, t *Task) error

	// DeleteTask removes a task, or ErrTaskNotFound.
	DeleteTask(ctx context.Context, id TaskID) error

	// TasksByFamily returns a family's tasks, newest first.
	TasksByFamily(ctx context.Context, familyID FamilyID) ([]*Task, error)

	// TasksByAssignee returns a user's assigned tasks within a family,
	// newest first. Both keys constrain the result.
	TasksByAssignee(ctx context.Context, familyID FamilyID, userID UserID) ([]*Task, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn within a transaction. If fn returns an error the
// transaction is rolled back and no partial state survives; otherwise it is
// committed. Transactions on the same store serialize against each other.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
