/*
Package tasks manages household tasks and the completion-credit handler.

PURPOSE:
  Task CRUD plus the one piece with real teeth: when a task's status crosses
  the edge into Completed, the assignee is credited the task's points exactly
  once.

IDEMPOTENT CREDITING:
  Two independent guards, both inside the same store transaction that saves
  the task:
  1. Edge gate: credit fires only on a `!= Completed -> Completed`
     transition. Re-saving an already-completed task is not an edge.
  2. Persisted flag: Task.CreditedAt is set when the credit commits. Even a
     task reverted and re-completed cannot be credited twice.

NO AUTOMATIC REVERSAL:
  Reverting a task out of Completed does NOT claw points back, and deleting
  a completed task does not either. Both cases are logged so a guardian can
  adjust manually if they care.

SEE ALSO:
  - ledger/: CreditAccount, composed inside this package's transactions
  - summary.go: Family task statistics
*/
package tasks

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearth/points-engine/ledger"
	"github.com/hearth/points-engine/points"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service manages tasks and reacts to completion transitions.
type Service struct {
	store points.TxStore
}

// New creates a task service over the given store.
func New(store points.TxStore) *Service {
	return &Service{store: store}
}

// CreateTaskInput carries the caller-supplied fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	AssigneeID  points.UserID
	Points      int64
	DueDate     *time.Time
}

// Create validates and inserts a new task for the family.
func (s *Service) Create(ctx context.Context, familyID points.FamilyID, createdBy points.UserID, in CreateTaskInput) (*points.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("task title is required: %w", points.ErrValidation)
	}
	if in.AssigneeID == "" {
		return nil, fmt.Errorf("task assignee is required: %w", points.ErrValidation)
	}
	if in.Points < 0 {
		return nil, fmt.Errorf("task points must be non-negative, got %d: %w", in.Points, points.ErrValidation)
	}

	now := time.Now().UTC()
	task := &points.Task{
		ID:          points.TaskID(uuid.NewString()),
		FamilyID:    familyID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		AssigneeID:  in.AssigneeID,
		Points:      in.Points,
		Status:      points.TaskPending,
		DueDate:     in.DueDate,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get returns one task, scoped to the family.
func (s *Service) Get(ctx context.Context, taskID points.TaskID, familyID points.FamilyID) (*points.Task, error) {
	task, err := s.store.Task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.FamilyID != familyID {
		return nil, fmt.Errorf("task %s: %w", taskID, points.ErrTaskNotFound)
	}
	return task, nil
}

// List returns the family's tasks, newest first.
func (s *Service) List(ctx context.Context, familyID points.FamilyID) ([]*points.Task, error) {
	return s.store.TasksByFamily(ctx, familyID)
}

// ListByAssignee returns a user's assigned tasks within a family, newest
// first. The family scope keeps one family's assignments invisible to
// another family's callers even when they guess the assignee id.
func (s *Service) ListByAssignee(ctx context.Context, familyID points.FamilyID, userID points.UserID) ([]*points.Task, error) {
	return s.store.TasksByAssignee(ctx, familyID, userID)
}

// =============================================================================
// UPDATES AND THE COMPLETION EDGE
// =============================================================================

// UpdateTaskInput carries optional updates; nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Points      *int64
	DueDate     *time.Time
	Status      *points.TaskStatus

	// ClearDueDate removes the due date. DueDate nil alone means
	// "unchanged", so clearing needs its own flag.
	ClearDueDate bool
}

// Update applies the provided fields to a task. If the update moves the
// status onto the Completed edge, the assignee is credited inside the same
// transaction; the credited amount is returned (0 when no credit fired).
func (s *Service) Update(ctx context.Context, taskID points.TaskID, familyID points.FamilyID, in UpdateTaskInput) (*points.Task, int64, error) {
	if in.Status != nil && !points.ValidTaskStatus(*in.Status) {
		return nil, 0, fmt.Errorf("unknown task status %q: %w", *in.Status, points.ErrValidation)
	}
	if in.Points != nil && *in.Points < 0 {
		return nil, 0, fmt.Errorf("task points must be non-negative, got %d: %w", *in.Points, points.ErrValidation)
	}

	var (
		task    *points.Task
		awarded int64
	)
	err := s.store.WithTx(ctx, func(st points.Store) error {
		var err error
		task, err = st.Task(ctx, taskID)
		if err != nil {
			return err
		}
		if task.FamilyID != familyID {
			return fmt.Errorf("task %s: %w", taskID, points.ErrTaskNotFound)
		}

		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return fmt.Errorf("task title is required: %w", points.ErrValidation)
			}
			task.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.Points != nil {
			task.Points = *in.Points
		}
		if in.ClearDueDate {
			task.DueDate = nil
		} else if in.DueDate != nil {
			task.DueDate = in.DueDate
		}

		if in.Status != nil {
			awarded, err = s.transition(ctx, st, task, *in.Status)
			if err != nil {
				return err
			}
		}

		task.UpdatedAt = time.Now().UTC()
		return st.UpdateTask(ctx, task)
	})
	if err != nil {
		return nil, 0, err
	}
	return task, awarded, nil
}

// Complete marks a task Completed and returns the points awarded. This is
// the completion-event entry point: invoking it on an already-completed
// task awards nothing further.
func (s *Service) Complete(ctx context.Context, taskID points.TaskID, familyID points.FamilyID) (*points.Task, int64, error) {
	status := points.TaskCompleted
	return s.Update(ctx, taskID, familyID, UpdateTaskInput{Status: &status})
}

// transition moves the task to next, crediting the assignee when the status
// crosses into Completed for the first time. Runs inside the caller's
// transaction.
func (s *Service) transition(ctx context.Context, st points.Store, task *points.Task, next points.TaskStatus) (int64, error) {
	var awarded int64

	switch {
	case task.Status != points.TaskCompleted && next == points.TaskCompleted:
		if task.Points > 0 && task.CreditedAt == nil {
			if _, err := ledger.CreditAccount(ctx, st, task.AssigneeID, task.Points); err != nil {
				return 0, err
			}
			now := time.Now().UTC()
			task.CreditedAt = &now
			awarded = task.Points
		}
	case task.Status == points.TaskCompleted && next != points.TaskCompleted:
		// Awarded points stay put: reversal is a guardian's manual call.
		if task.Points > 0 {
			log.Printf("task %s reverted from completed; %d previously awarded points are not reversed", task.ID, task.Points)
		}
	}

	task.Status = next
	return awarded, nil
}

// Delete removes a task. Completed tasks delete without point reversal.
func (s *Service) Delete(ctx context.Context, taskID points.TaskID, familyID points.FamilyID) error {
	task, err := s.store.Task(ctx, taskID)
	if err != nil {
		return err
	}
	if task.FamilyID != familyID {
		return fmt.Errorf("task %s: %w", taskID, points.ErrTaskNotFound)
	}

	if task.Status == points.TaskCompleted && task.Points > 0 {
		log.Printf("task %s deleted while completed; %d awarded points are not reversed", task.ID, task.Points)
	}
	return s.store.DeleteTask(ctx, taskID)
}
