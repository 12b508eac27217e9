package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth/points-engine/ledger"
	"github.com/hearth/points-engine/points"
	"github.com/hearth/points-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) *ledger.Service {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return ledger.New(store)
}

// =============================================================================
// BALANCE TESTS
// =============================================================================

func TestLedger_NewAccount_StartsAtZero(t *testing.T) {
	// GIVEN: A user with no prior activity
	// WHEN: Reading their balance
	// THEN: The account materializes with balance 0

	svc := newTestLedger(t)
	ctx := context.Background()

	balance, err := svc.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestLedger_CreditThenDebit_Conserves(t *testing.T) {
	// GIVEN: An account credited 100
	// WHEN: Debiting 30
	// THEN: Balance is 70 and both calls report the running balance

	svc := newTestLedger(t)
	ctx := context.Background()

	balance, err := svc.Credit(ctx, "kid-1", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = svc.Debit(ctx, "kid-1", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	balance, err = svc.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
}

func TestLedger_Accounts_AreIndependent(t *testing.T) {
	// GIVEN: Two users with separate credit history
	// WHEN: Debiting one of them
	// THEN: The other's balance is untouched

	svc := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "kid-1", 100)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, "kid-2", 40)
	require.NoError(t, err)

	_, err = svc.Debit(ctx, "kid-1", 60)
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, "kid-2")
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)
}

// =============================================================================
// INVARIANT TESTS
// =============================================================================

func TestLedger_Debit_InsufficientBalance_Rejected(t *testing.T) {
	// GIVEN: An account holding 50 points
	// WHEN: Debiting 80
	// THEN: The debit fails with InsufficientBalanceError and the balance
	//       is unchanged

	svc := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "kid-1", 50)
	require.NoError(t, err)

	_, err = svc.Debit(ctx, "kid-1", 80)
	assert.Error(t, err, "overdraft should be rejected")
	assert.ErrorIs(t, err, points.ErrInsufficientBalance)

	var insufErr *points.InsufficientBalanceError
	require.ErrorAs(t, err, &insufErr)
	assert.Equal(t, int64(50), insufErr.Available)
	assert.Equal(t, int64(80), insufErr.Requested)

	balance, err := svc.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance, "failed debit must not move the balance")
}

func TestLedger_Debit_EmptyAccount_Rejected(t *testing.T) {
	// GIVEN: A user who never earned anything
	// WHEN: Debiting any positive amount
	// THEN: InsufficientBalanceError (the lazy account holds 0)

	svc := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Debit(ctx, "kid-1", 1)
	assert.ErrorIs(t, err, points.ErrInsufficientBalance)
}

func TestLedger_NonPositiveAmounts_Rejected(t *testing.T) {
	// GIVEN: Any account
	// WHEN: Crediting or debiting zero or a negative amount
	// THEN: ErrInvalidAmount, balance unchanged

	svc := newTestLedger(t)
	ctx := context.Background()

	for _, amount := range []int64{0, -1, -100} {
		_, err := svc.Credit(ctx, "kid-1", amount)
		assert.ErrorIs(t, err, points.ErrInvalidAmount, "credit of %d", amount)

		_, err = svc.Debit(ctx, "kid-1", amount)
		assert.ErrorIs(t, err, points.ErrInvalidAmount, "debit of %d", amount)
	}

	balance, err := svc.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestLedger_ConcurrentCredits_AllApplied(t *testing.T) {
	// GIVEN: 20 goroutines each crediting 5 points to the same account
	// WHEN: All complete
	// THEN: The balance is exactly 100 (no lost updates)

	svc := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(ctx, "kid-1", 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := svc.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestLedger_ConcurrentDebits_NeverOverdraw(t *testing.T) {
	// GIVEN: An account holding 100 points and 10 goroutines each trying
	//        to debit 30
	// WHEN: All complete
	// THEN: Exactly 3 debits succeed (3*30=90 <= 100, 4*30=120 > 100) and
	//       the final balance is 10

	svc := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "kid-1", 100)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(ctx, "kid-1", 30); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded, "only three 30-point debits fit in 100")

	balance, err := svc.GetBalance(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}
