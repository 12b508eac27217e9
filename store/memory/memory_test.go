package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth/points-engine/points"
	"github.com/hearth/points-engine/store/memory"
)

func testReward(id string, family points.FamilyID, cost int64) *points.Reward {
	now := time.Now().UTC()
	return &points.Reward{
		ID:        points.RewardID(id),
		FamilyID:  family,
		Name:      "reward " + id,
		PointCost: cost,
		CreatedBy: "parent-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemory_WithTx_SnapshotRollback(t *testing.T) {
	// GIVEN: A store holding one account and one reward
	// WHEN: A transaction mutates both and then fails
	// THEN: The pre-transaction state is restored exactly

	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, points.Account{UserID: "kid-1", Balance: 50}))
	require.NoError(t, store.CreateReward(ctx, testReward("r1", "fam-1", 10)))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(st points.Store) error {
		if err := st.SaveAccount(ctx, points.Account{UserID: "kid-1", Balance: 5}); err != nil {
			return err
		}
		if err := st.DeleteReward(ctx, "r1"); err != nil {
			return err
		}
		if err := st.CreateReward(ctx, testReward("r2", "fam-1", 99)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	acct, err := store.Account(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), acct.Balance)

	_, err = store.Reward(ctx, "r1")
	assert.NoError(t, err, "deleted reward must come back on rollback")

	_, err = store.Reward(ctx, "r2")
	assert.ErrorIs(t, err, points.ErrRewardNotFound, "created reward must vanish on rollback")
}

func TestMemory_Reads_ReturnCopies(t *testing.T) {
	// GIVEN: A stored reward
	// WHEN: A caller mutates the struct a read returned
	// THEN: The stored record is unaffected

	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.CreateReward(ctx, testReward("r1", "fam-1", 10)))

	loaded, err := store.Reward(ctx, "r1")
	require.NoError(t, err)
	loaded.PointCost = 9999

	again, err := store.Reward(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), again.PointCost)
}

func TestMemory_SaveAccount_NegativeBalance_Refused(t *testing.T) {
	// GIVEN: Any store
	// WHEN: Saving an account with a negative balance
	// THEN: The write is refused

	store := memory.New()

	err := store.SaveAccount(context.Background(), points.Account{UserID: "kid-1", Balance: -1})
	assert.Error(t, err)
}

func TestMemory_RewardsByFamily_Ordered(t *testing.T) {
	// GIVEN: Rewards with costs 300, 20, 80 in one family
	// WHEN: Listing
	// THEN: Cheapest first, other families excluded

	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.CreateReward(ctx, testReward("r1", "fam-1", 300)))
	require.NoError(t, store.CreateReward(ctx, testReward("r2", "fam-1", 20)))
	require.NoError(t, store.CreateReward(ctx, testReward("r3", "fam-1", 80)))
	require.NoError(t, store.CreateReward(ctx, testReward("other", "fam-2", 1)))

	rewards, err := store.RewardsByFamily(ctx, "fam-1")
	require.NoError(t, err)
	require.Len(t, rewards, 3)
	assert.Equal(t, points.RewardID("r2"), rewards[0].ID)
	assert.Equal(t, points.RewardID("r3"), rewards[1].ID)
	assert.Equal(t, points.RewardID("r1"), rewards[2].ID)
}
