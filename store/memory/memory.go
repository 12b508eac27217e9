/*
Package memory provides an in-memory points.TxStore for tests and dev.

TRANSACTIONS:
  WithTx holds the store's write lock for the whole function, so
  transactions serialize exactly like the SQLite store's single-writer
  mode. Rollback is a snapshot restore: state is copied before fn runs and
  put back if fn fails, so a failed transaction leaves no partial state.

  Records are stored by value and returned as copies, so callers can't
  mutate store state behind the lock's back.
*/
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hearth/points-engine/points"
)

// =============================================================================
// STORE
// =============================================================================

var (
	_ points.TxStore = (*Store)(nil)
	_ points.Store   = (*txStore)(nil)
)

// Store is an in-memory implementation of points.TxStore.
type Store struct {
	mu sync.RWMutex

	accounts    map[points.UserID]points.Account
	rewards     map[points.RewardID]points.Reward
	redemptions map[points.RedemptionID]points.Redemption
	tasks       map[points.TaskID]points.Task

	// Insertion order, for newest-first listings.
	redemptionOrder []points.RedemptionID
	taskOrder       []points.TaskID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:    make(map[points.UserID]points.Account),
		rewards:     make(map[points.RewardID]points.Reward),
		redemptions: make(map[points.RedemptionID]points.Redemption),
		tasks:       make(map[points.TaskID]points.Task),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type snapshot struct {
	accounts    map[points.UserID]points.Account
	rewards     map[points.RewardID]points.Reward
	redemptions map[points.RedemptionID]points.Redemption
	tasks       map[points.TaskID]points.Task

	redemptionOrder []points.RedemptionID
	taskOrder       []points.TaskID
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		accounts:        make(map[points.UserID]points.Account, len(s.accounts)),
		rewards:         make(map[points.RewardID]points.Reward, len(s.rewards)),
		redemptions:     make(map[points.RedemptionID]points.Redemption, len(s.redemptions)),
		tasks:           make(map[points.TaskID]points.Task, len(s.tasks)),
		redemptionOrder: append([]points.RedemptionID(nil), s.redemptionOrder...),
		taskOrder:       append([]points.TaskID(nil), s.taskOrder...),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.rewards {
		snap.rewards[k] = v
	}
	for k, v := range s.redemptions {
		snap.redemptions[k] = v
	}
	for k, v := range s.tasks {
		snap.tasks[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.rewards = snap.rewards
	s.redemptions = snap.redemptions
	s.tasks = snap.tasks
	s.redemptionOrder = snap.redemptionOrder
	s.taskOrder = snap.taskOrder
}

// WithTx runs fn under the write lock, restoring the pre-transaction state
// if fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(points.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&txStore{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// txStore exposes the unlocked accessors to the function inside WithTx.
// The write lock is already held; re-locking would deadlock.
type txStore struct {
	s *Store
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) Account(ctx context.Context, userID points.UserID) (points.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(userID)
}

func (t *txStore) Account(ctx context.Context, userID points.UserID) (points.Account, error) {
	return t.s.account(userID)
}

func (s *Store) account(userID points.UserID) (points.Account, error) {
	acct, ok := s.accounts[userID]
	if !ok {
		acct = points.Account{UserID: userID}
		s.accounts[userID] = acct
	}
	return acct, nil
}

func (s *Store) SaveAccount(ctx context.Context, acct points.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAccount(acct)
}

func (t *txStore) SaveAccount(ctx context.Context, acct points.Account) error {
	return t.s.saveAccount(acct)
}

func (s *Store) saveAccount(acct points.Account) error {
	if acct.Balance < 0 {
		return fmt.Errorf("account %s: refusing to store negative balance %d", acct.UserID, acct.Balance)
	}
	s.accounts[acct.UserID] = acct
	return nil
}

// =============================================================================
// REWARDS
// =============================================================================

func (s *Store) Reward(ctx context.Context, id points.RewardID) (*points.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reward(id)
}

func (t *txStore) Reward(ctx context.Context, id points.RewardID) (*points.Reward, error) {
	return t.s.reward(id)
}

func (s *Store) reward(id points.RewardID) (*points.Reward, error) {
	r, ok := s.rewards[id]
	if !ok {
		return nil, points.ErrRewardNotFound
	}
	return &r, nil
}

func (s *Store) CreateReward(ctx context.Context, r *points.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards[r.ID] = *r
	return nil
}

func (t *txStore) CreateReward(ctx context.Context, r *points.Reward) error {
	t.s.rewards[r.ID] = *r
	return nil
}

func (s *Store) UpdateReward(ctx context.Context, r *points.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateReward(r)
}

func (t *txStore) UpdateReward(ctx context.Context, r *points.Reward) error {
	return t.s.updateReward(r)
}

func (s *Store) updateReward(r *points.Reward) error {
	if _, ok := s.rewards[r.ID]; !ok {
		return points.ErrRewardNotFound
	}
	s.rewards[r.ID] = *r
	return nil
}

func (s *Store) DeleteReward(ctx context.Context, id points.RewardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteReward(id)
}

func (t *txStore) DeleteReward(ctx context.Context, id points.RewardID) error {
	return t.s.deleteReward(id)
}

func (s *Store) deleteReward(id points.RewardID) error {
	if _, ok := s.rewards[id]; !ok {
		return points.ErrRewardNotFound
	}
	delete(s.rewards, id)
	return nil
}

func (s *Store) RewardsByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rewardsByFamily(familyID)
}

func (t *txStore) RewardsByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Reward, error) {
	return t.s.rewardsByFamily(familyID)
}

func (s *Store) rewardsByFamily(familyID points.FamilyID) ([]*points.Reward, error) {
	var out []*points.Reward
	for _, r := range s.rewards {
		if r.FamilyID == familyID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PointCost != out[j].PointCost {
			return out[i].PointCost < out[j].PointCost
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// =============================================================================
// REDEMPTIONS
// =============================================================================

func (s *Store) Redemption(ctx context.Context, id points.RedemptionID) (*points.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redemption(id)
}

func (t *txStore) Redemption(ctx context.Context, id points.RedemptionID) (*points.Redemption, error) {
	return t.s.redemption(id)
}

func (s *Store) redemption(id points.RedemptionID) (*points.Redemption, error) {
	r, ok := s.redemptions[id]
	if !ok {
		return nil, points.ErrRedemptionNotFound
	}
	return &r, nil
}

func (s *Store) CreateRedemption(ctx context.Context, r *points.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRedemption(r)
}

func (t *txStore) CreateRedemption(ctx context.Context, r *points.Redemption) error {
	return t.s.createRedemption(r)
}

func (s *Store) createRedemption(r *points.Redemption) error {
	s.redemptions[r.ID] = *r
	s.redemptionOrder = append(s.redemptionOrder, r.ID)
	return nil
}

func (s *Store) UpdateRedemption(ctx context.Context, r *points.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateRedemption(r)
}

func (t *txStore) UpdateRedemption(ctx context.Context, r *points.Redemption) error {
	return t.s.updateRedemption(r)
}

func (s *Store) updateRedemption(r *points.Redemption) error {
	if _, ok := s.redemptions[r.ID]; !ok {
		return points.ErrRedemptionNotFound
	}
	s.redemptions[r.ID] = *r
	return nil
}

func (s *Store) RedemptionsByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redemptionsByFamily(familyID)
}

func (t *txStore) RedemptionsByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Redemption, error) {
	return t.s.redemptionsByFamily(familyID)
}

func (s *Store) redemptionsByFamily(familyID points.FamilyID) ([]*points.Redemption, error) {
	var out []*points.Redemption
	// Newest first.
	for i := len(s.redemptionOrder) - 1; i >= 0; i-- {
		r, ok := s.redemptions[s.redemptionOrder[i]]
		if !ok {
			continue
		}
		reward, ok := s.rewards[r.RewardID]
		if !ok || reward.FamilyID != familyID {
			continue
		}
		out = append(out, &r)
	}
	return out, nil
}

func (s *Store) CountPendingByReward(ctx context.Context, rewardID points.RewardID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countPendingByReward(rewardID)
}

func (t *txStore) CountPendingByReward(ctx context.Context, rewardID points.RewardID) (int, error) {
	return t.s.countPendingByReward(rewardID)
}

func (s *Store) countPendingByReward(rewardID points.RewardID) (int, error) {
	n := 0
	for _, r := range s.redemptions {
		if r.RewardID == rewardID && r.Status == points.RedemptionPending {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// TASKS
// =============================================================================

func (s *Store) Task(ctx context.Context, id points.TaskID) (*points.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.task(id)
}

func (t *txStore) Task(ctx context.Context, id points.TaskID) (*points.Task, error) {
	return t.s.task(id)
}

func (s *Store) task(id points.TaskID) (*points.Task, error) {
	tk, ok := s.tasks[id]
	if !ok {
		return nil, points.ErrTaskNotFound
	}
	return &tk, nil
}

func (s *Store) CreateTask(ctx context.Context, tk *points.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTask(tk)
}

func (t *txStore) CreateTask(ctx context.Context, tk *points.Task) error {
	return t.s.createTask(tk)
}

func (s *Store) createTask(tk *points.Task) error {
	s.tasks[tk.ID] = *tk
	s.taskOrder = append(s.taskOrder, tk.ID)
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, tk *points.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTask(tk)
}

func (t *txStore) UpdateTask(ctx context.Context, tk *points.Task) error {
	return t.s.updateTask(tk)
}

func (s *Store) updateTask(tk *points.Task) error {
	if _, ok := s.tasks[tk.ID]; !ok {
		return points.ErrTaskNotFound
	}
	s.tasks[tk.ID] = *tk
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id points.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteTask(id)
}

func (t *txStore) DeleteTask(ctx context.Context, id points.TaskID) error {
	return t.s.deleteTask(id)
}

func (s *Store) deleteTask(id points.TaskID) error {
	if _, ok := s.tasks[id]; !ok {
		return points.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) TasksByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasksByFamily(familyID)
}

func (t *txStore) TasksByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Task, error) {
	return t.s.tasksByFamily(familyID)
}

func (s *Store) tasksByFamily(familyID points.FamilyID) ([]*points.Task, error) {
	var out []*points.Task
	for i := len(s.taskOrder) - 1; i >= 0; i-- {
		tk, ok := s.tasks[s.taskOrder[i]]
		if !ok || tk.FamilyID != familyID {
			continue
		}
		out = append(out, &tk)
	}
	return out, nil
}

func (s *Store) TasksByAssignee(ctx context.Context, familyID points.FamilyID, userID points.UserID) ([]*points.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasksByAssignee(familyID, userID)
}

func (t *txStore) TasksByAssignee(ctx context.Context, familyID points.FamilyID, userID points.UserID) ([]*points.Task, error) {
	return t.s.tasksByAssignee(familyID, userID)
}

func (s *Store) tasksByAssignee(familyID points.FamilyID, userID points.UserID) ([]*points.Task, error) {
	var out []*points.Task
	for i := len(s.taskOrder) - 1; i >= 0; i-- {
		tk, ok := s.tasks[s.taskOrder[i]]
		if !ok || tk.FamilyID != familyID || tk.AssigneeID != userID {
			continue
		}
		out = append(out, &tk)
	}
	return out, nil
}
