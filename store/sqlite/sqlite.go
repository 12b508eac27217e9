/*
Package sqlite provides a SQLite-backed implementation of points.TxStore.

PURPOSE:
  Implements the persistence contract using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences, plus
  SELECT ... FOR UPDATE instead of the single-writer lock.

KEY TABLES:
  accounts:    One balance row per user, CHECK (balance >= 0)
  rewards:     Family reward catalog
  redemptions: Approval state machine records
  tasks:       Household tasks with the credited_at idempotency flag

CONCURRENCY:
  A sync.RWMutex serializes writes; WithTx holds the write lock for the
  whole transaction, so two transactions on the same account cannot
  interleave - the later one observes the earlier one's committed balance.
  Every method routes through unexported helpers that take a dbtx (either
  the pooled *sql.DB or the transaction's *sql.Tx), so transaction-scoped
  calls never re-acquire the lock.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

DEFENSE IN DEPTH:
  The ledger checks balances in application code; the CHECK constraint on
  accounts.balance is the database's last line against a negative balance
  ever committing.

USAGE:
  store, err := sqlite.New("./data/points.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.New(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - points/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hearth/points-engine/points"
)

var (
	_ points.TxStore = (*Store)(nil)
	_ points.Store   = (*txStore)(nil)
)

// Store implements points.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent across the
	// pool; the store serializes writes anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts (one balance row per user)
	CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0)
	);

	-- Rewards (family catalog)
	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		family_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		point_cost INTEGER NOT NULL CHECK (point_cost >= 0),
		requires_approval INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rewards_family
		ON rewards(family_id, point_cost);

	-- Redemptions (approval state machine records)
	CREATE TABLE IF NOT EXISTS redemptions (
		id TEXT PRIMARY KEY,
		reward_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		approver_id TEXT,
		requested_at TEXT NOT NULL,
		decided_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_redemptions_reward
		ON redemptions(reward_id);

	-- Hot path for the reward-deletion guard
	CREATE INDEX IF NOT EXISTS idx_redemptions_reward_status
		ON redemptions(reward_id, status);

	CREATE INDEX IF NOT EXISTS idx_redemptions_user
		ON redemptions(user_id);

	-- Tasks
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		family_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		assignee_id TEXT NOT NULL,
		points INTEGER NOT NULL CHECK (points >= 0),
		status TEXT NOT NULL,
		due_date TEXT,
		credited_at TEXT,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_family
		ON tasks(family_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_assignee
		ON tasks(assignee_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction under the write lock.
func (s *Store) WithTx(ctx context.Context, fn func(points.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every call through the transaction. It never touches the
// parent's mutex - WithTx already holds it.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Account(ctx context.Context, userID points.UserID) (points.Account, error) {
	return ts.parent.account(ctx, ts.tx, userID)
}

func (ts *txStore) SaveAccount(ctx context.Context, acct points.Account) error {
	return ts.parent.saveAccount(ctx, ts.tx, acct)
}

func (ts *txStore) Reward(ctx context.Context, id points.RewardID) (*points.Reward, error) {
	return ts.parent.reward(ctx, ts.tx, id)
}

func (ts *txStore) CreateReward(ctx context.Context, r *points.Reward) error {
	return ts.parent.createReward(ctx, ts.tx, r)
}

func (ts *txStore) UpdateReward(ctx context.Context, r *points.Reward) error {
	return ts.parent.updateReward(ctx, ts.tx, r)
}

func (ts *txStore) DeleteReward(ctx context.Context, id points.RewardID) error {
	return ts.parent.deleteReward(ctx, ts.tx, id)
}

func (ts *txStore) RewardsByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Reward, error) {
	return ts.parent.rewardsByFamily(ctx, ts.tx, familyID)
}

func (ts *txStore) Redemption(ctx context.Context, id points.RedemptionID) (*points.Redemption, error) {
	return ts.parent.redemption(ctx, ts.tx, id)
}

func (ts *txStore) CreateRedemption(ctx context.Context, r *points.Redemption) error {
	return ts.parent.createRedemption(ctx, ts.tx, r)
}

func (ts *txStore) UpdateRedemption(ctx context.Context, r *points.Redemption) error {
	return ts.parent.updateRedemption(ctx, ts.tx, r)
}

func (ts *txStore) RedemptionsByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Redemption, error) {
	return ts.parent.redemptionsByFamily(ctx, ts.tx, familyID)
}

func (ts *txStore) CountPendingByReward(ctx context.Context, rewardID points.RewardID) (int, error) {
	return ts.parent.countPendingByReward(ctx, ts.tx, rewardID)
}

func (ts *txStore) Task(ctx context.Context, id points.TaskID) (*points.Task, error) {
	return ts.parent.task(ctx, ts.tx, id)
}

func (ts *txStore) CreateTask(ctx context.Context, t *points.Task) error {
	return ts.parent.createTask(ctx, ts.tx, t)
}

func (ts *txStore) UpdateTask(ctx context.Context, t *points.Task) error {
	return ts.parent.updateTask(ctx, ts.tx, t)
}

func (ts *txStore) DeleteTask(ctx context.Context, id points.TaskID) error {
	return ts.parent.deleteTask(ctx, ts.tx, id)
}

func (ts *txStore) TasksByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Task, error) {
	return ts.parent.tasksByFamily(ctx, ts.tx, familyID)
}

func (ts *txStore) TasksByAssignee(ctx context.Context, familyID points.FamilyID, userID points.UserID) ([]*points.Task, error) {
	return ts.parent.tasksByAssignee(ctx, ts.tx, familyID, userID)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// Account returns the balance row for a user, creating a zero balance row
// if none exists.
func (s *Store) Account(ctx context.Context, userID points.UserID) (points.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(ctx, s.db, userID)
}

func (s *Store) account(ctx context.Context, db dbtx, userID points.UserID) (points.Account, error) {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (user_id, balance) VALUES (?, 0)`, userID,
	); err != nil {
		return points.Account{}, fmt.Errorf("failed to ensure account: %w", err)
	}

	var acct points.Account
	err := db.QueryRowContext(ctx,
		`SELECT user_id, balance FROM accounts WHERE user_id = ?`, userID,
	).Scan(&acct.UserID, &acct.Balance)
	if err != nil {
		return points.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return acct, nil
}

func (s *Store) SaveAccount(ctx context.Context, acct points.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAccount(ctx, s.db, acct)
}

func (s *Store) saveAccount(ctx context.Context, db dbtx, acct points.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET balance = excluded.balance`,
		acct.UserID, acct.Balance,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// =============================================================================
// REWARDS
// =============================================================================

func (s *Store) Reward(ctx context.Context, id points.RewardID) (*points.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reward(ctx, s.db, id)
}

const rewardColumns = `id, family_id, name, description, point_cost, requires_approval, created_by, created_at, updated_at`

func (s *Store) reward(ctx context.Context, db dbtx, id points.RewardID) (*points.Reward, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, points.ErrRewardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reward: %w", err)
	}
	return r, nil
}

func (s *Store) CreateReward(ctx context.Context, r *points.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createReward(ctx, s.db, r)
}

func (s *Store) createReward(ctx context.Context, db dbtx, r *points.Reward) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO rewards (`+rewardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FamilyID, r.Name, r.Description, r.PointCost,
		boolToInt(r.RequiresApproval), r.CreatedBy,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create reward: %w", err)
	}
	return nil
}

func (s *Store) UpdateReward(ctx context.Context, r *points.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateReward(ctx, s.db, r)
}

func (s *Store) updateReward(ctx context.Context, db dbtx, r *points.Reward) error {
	res, err := db.ExecContext(ctx, `
		UPDATE rewards
		SET name = ?, description = ?, point_cost = ?, requires_approval = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Description, r.PointCost, boolToInt(r.RequiresApproval),
		formatTime(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	return requireRow(res, points.ErrRewardNotFound)
}

func (s *Store) DeleteReward(ctx context.Context, id points.RewardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteReward(ctx, s.db, id)
}

func (s *Store) deleteReward(ctx context.Context, db dbtx, id points.RewardID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	return requireRow(res, points.ErrRewardNotFound)
}

func (s *Store) RewardsByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rewardsByFamily(ctx, s.db, familyID)
}

func (s *Store) rewardsByFamily(ctx context.Context, db dbtx, familyID points.FamilyID) ([]*points.Reward, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+rewardColumns+` FROM rewards
		 WHERE family_id = ?
		 ORDER BY point_cost ASC, created_at ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var out []*points.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReward(row scanner) (*points.Reward, error) {
	var (
		r                    points.Reward
		requiresApproval     int
		createdAt, updatedAt string
	)
	err := row.Scan(&r.ID, &r.FamilyID, &r.Name, &r.Description, &r.PointCost,
		&requiresApproval, &r.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.RequiresApproval = requiresApproval != 0
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// =============================================================================
// REDEMPTIONS
// =============================================================================

func (s *Store) Redemption(ctx context.Context, id points.RedemptionID) (*points.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redemption(ctx, s.db, id)
}

const redemptionColumns = `id, reward_id, user_id, status, approver_id, requested_at, decided_at`

func (s *Store) redemption(ctx context.Context, db dbtx, id points.RedemptionID) (*points.Redemption, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+redemptionColumns+` FROM redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, points.ErrRedemptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load redemption: %w", err)
	}
	return r, nil
}

func (s *Store) CreateRedemption(ctx context.Context, r *points.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRedemption(ctx, s.db, r)
}

func (s *Store) createRedemption(ctx context.Context, db dbtx, r *points.Redemption) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO redemptions (`+redemptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RewardID, r.UserID, r.Status,
		nullUserID(r.ApproverID), formatTime(r.RequestedAt), nullTime(r.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create redemption: %w", err)
	}
	return nil
}

func (s *Store) UpdateRedemption(ctx context.Context, r *points.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateRedemption(ctx, s.db, r)
}

func (s *Store) updateRedemption(ctx context.Context, db dbtx, r *points.Redemption) error {
	res, err := db.ExecContext(ctx, `
		UPDATE redemptions
		SET status = ?, approver_id = ?, decided_at = ?
		WHERE id = ?`,
		r.Status, nullUserID(r.ApproverID), nullTime(r.DecidedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update redemption: %w", err)
	}
	return requireRow(res, points.ErrRedemptionNotFound)
}

func (s *Store) RedemptionsByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redemptionsByFamily(ctx, s.db, familyID)
}

func (s *Store) redemptionsByFamily(ctx context.Context, db dbtx, familyID points.FamilyID) ([]*points.Redemption, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.id, r.reward_id, r.user_id, r.status, r.approver_id, r.requested_at, r.decided_at
		FROM redemptions r
		JOIN rewards w ON w.id = r.reward_id
		WHERE w.family_id = ?
		ORDER BY r.requested_at DESC, r.rowid DESC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	defer rows.Close()

	var out []*points.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CountPendingByReward(ctx context.Context, rewardID points.RewardID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countPendingByReward(ctx, s.db, rewardID)
}

func (s *Store) countPendingByReward(ctx context.Context, db dbtx, rewardID points.RewardID) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM redemptions WHERE reward_id = ? AND status = ?`,
		rewardID, points.RedemptionPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending redemptions: %w", err)
	}
	return n, nil
}

func scanRedemption(row scanner) (*points.Redemption, error) {
	var (
		r           points.Redemption
		approverID  sql.NullString
		requestedAt string
		decidedAt   sql.NullString
	)
	err := row.Scan(&r.ID, &r.RewardID, &r.UserID, &r.Status, &approverID, &requestedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	if approverID.Valid {
		uid := points.UserID(approverID.String)
		r.ApproverID = &uid
	}
	r.RequestedAt = parseTime(requestedAt)
	if decidedAt.Valid {
		t := parseTime(decidedAt.String)
		r.DecidedAt = &t
	}
	return &r, nil
}

// =============================================================================
// TASKS
// =============================================================================

func (s *Store) Task(ctx context.Context, id points.TaskID) (*points.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.task(ctx, s.db, id)
}

const taskColumns = `id, family_id, title, description, assignee_id, points, status, due_date, credited_at, created_by, created_at, updated_at`

func (s *Store) task(ctx context.Context, db dbtx, id points.TaskID) (*points.Task, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, points.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, t *points.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTask(ctx, s.db, t)
}

func (s *Store) createTask(ctx context.Context, db dbtx, t *points.Task) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.FamilyID, t.Title, t.Description, t.AssigneeID, t.Points, t.Status,
		nullTime(t.DueDate), nullTime(t.CreditedAt), t.CreatedBy,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, t *points.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTask(ctx, s.db, t)
}

func (s *Store) updateTask(ctx context.Context, db dbtx, t *points.Task) error {
	res, err := db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, assignee_id = ?, points = ?, status = ?,
		    due_date = ?, credited_at = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.AssigneeID, t.Points, t.Status,
		nullTime(t.DueDate), nullTime(t.CreditedAt), formatTime(t.UpdatedAt), t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(res, points.ErrTaskNotFound)
}

func (s *Store) DeleteTask(ctx context.Context, id points.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteTask(ctx, s.db, id)
}

func (s *Store) deleteTask(ctx context.Context, db dbtx, id points.TaskID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRow(res, points.ErrTaskNotFound)
}

func (s *Store) TasksByFamily(ctx context.Context, familyID points.FamilyID) ([]*points.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasksByFamily(ctx, s.db, familyID)
}

func (s *Store) tasksByFamily(ctx context.Context, db dbtx, familyID points.FamilyID) ([]*points.Task, error) {
	return s.queryTasks(ctx, db,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE family_id = ?
		 ORDER BY created_at DESC, rowid DESC`, familyID)
}

func (s *Store) TasksByAssignee(ctx context.Context, familyID points.FamilyID, userID points.UserID) ([]*points.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasksByAssignee(ctx, s.db, familyID, userID)
}

func (s *Store) tasksByAssignee(ctx context.Context, db dbtx, familyID points.FamilyID, userID points.UserID) ([]*points.Task, error) {
	return s.queryTasks(ctx, db,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE family_id = ? AND assignee_id = ?
		 ORDER BY created_at DESC, rowid DESC`, familyID, userID)
}

func (s *Store) queryTasks(ctx context.Context, db dbtx, query string, args ...any) ([]*points.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []*points.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row scanner) (*points.Task, error) {
	var (
		t                    points.Task
		dueDate, creditedAt  sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.AssigneeID,
		&t.Points, &t.Status, &dueDate, &creditedAt, &t.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		d := parseTime(dueDate.String)
		t.DueDate = &d
	}
	if creditedAt.Valid {
		c := parseTime(creditedAt.String)
		t.CreditedAt = &c
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullUserID(id *points.UserID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// requireRow converts a zero-row write into notFound.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
