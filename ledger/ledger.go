/*
Package ledger owns per-user point balances and their atomic mutation.

PURPOSE:
  The ledger is the only writer of account balances. Every earn and spend in
  the system goes through Credit or Debit, which run as a single atomic
  read-modify-write inside a store transaction.

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: Balance >= 0 at every committed state. Debit checks the
     balance inside the same transaction that subtracts it.
  2. ATOMIC: No caller can observe an intermediate state. Two concurrent
     operations on the same account serialize; the later one sees the
     former's committed result.
  3. POSITIVE AMOUNTS: Credit and Debit reject amounts <= 0 with
     ErrInvalidAmount. A zero-cost redemption simply skips the debit.

COMPOSING WITH OTHER WORKFLOWS:
  The redemption workflow must bundle "balance check + debit + record write"
  into ONE transaction (no double-spend). For that, the transaction-scoped
  functions CreditAccount and DebitAccount operate on a plain points.Store
  and are meant to be called inside a WithTx the caller already holds. The
  Service methods are the standalone form: they open their own transaction.

EXAMPLE:
  svc := ledger.New(store)
  balance, err := svc.Credit(ctx, "user-1", 50)
  balance, err = svc.Debit(ctx, "user-1", 80) // ErrInsufficientBalance

SEE ALSO:
  - points/store.go: The atomicity contract WithTx implementations honor
  - redemption/: Composes DebitAccount inside its own transactions
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/hearth/points-engine/points"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service is the points ledger. All methods are safe for concurrent use;
// per-account serialization is provided by the store's WithTx.
type Service struct {
	store points.TxStore
}

// New creates a ledger service over the given store.
func New(store points.TxStore) *Service {
	return &Service{store: store}
}

// GetBalance returns the current balance for a user, creating the account
// record lazily. Never fails for a valid user id.
func (s *Service) GetBalance(ctx context.Context, userID points.UserID) (int64, error) {
	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load account %s: %w", userID, err)
	}
	return acct.Balance, nil
}

// Credit atomically adds amount to the user's balance and returns the new
// balance. Amount must be a positive integer; there is no upper bound.
func (s *Service) Credit(ctx context.Context, userID points.UserID, amount int64) (int64, error) {
	var balance int64
	err := s.store.WithTx(ctx, func(st points.Store) error {
		var err error
		balance, err = CreditAccount(ctx, st, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Debit atomically subtracts amount from the user's balance, but only if the
// balance covers it. Returns the new balance on success, or
// ErrInsufficientBalance (balance unchanged) otherwise. Amount must be a
// positive integer.
func (s *Service) Debit(ctx context.Context, userID points.UserID, amount int64) (int64, error) {
	var balance int64
	err := s.store.WithTx(ctx, func(st points.Store) error {
		var err error
		balance, err = DebitAccount(ctx, st, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// =============================================================================
// TRANSACTION-SCOPED OPERATIONS
// =============================================================================

// CreditAccount adds amount to the user's balance using the given store.
// REQUIRES: st is a transaction-scoped store (inside WithTx). Callers that
// don't hold a transaction should use Service.Credit instead.
func CreditAccount(ctx context.Context, st points.Store, userID points.UserID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit of %d: %w", amount, points.ErrInvalidAmount)
	}

	acct, err := st.Account(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load account %s: %w", userID, err)
	}

	acct.Balance += amount
	if err := st.SaveAccount(ctx, acct); err != nil {
		return 0, fmt.Errorf("save account %s: %w", userID, err)
	}
	return acct.Balance, nil
}

// DebitAccount subtracts amount from the user's balance using the given
// store, failing with InsufficientBalanceError if the balance doesn't cover
// it. REQUIRES: st is a transaction-scoped store (inside WithTx).
func DebitAccount(ctx context.Context, st points.Store, userID points.UserID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit of %d: %w", amount, points.ErrInvalidAmount)
	}

	acct, err := st.Account(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load account %s: %w", userID, err)
	}

	if acct.Balance < amount {
		return 0, &points.InsufficientBalanceError{
			UserID:    userID,
			Available: acct.Balance,
			Requested: amount,
		}
	}

	acct.Balance -= amount
	if err := st.SaveAccount(ctx, acct); err != nil {
		return 0, fmt.Errorf("save account %s: %w", userID, err)
	}
	return acct.Balance, nil
}
