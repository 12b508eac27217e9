/*
seed.go - Demo data loader for testing and demonstrations

PURPOSE:

	Populates the store with a realistic demo family: a reward catalog,
	tasks in several states, and a starting balance earned through
	completed tasks. Useful for manual exploration against a fresh
	database.

WHAT IT CREATES:

	Family "demo-family":
	  - parent "demo-parent" and child "demo-child"
	  - four rewards spanning cheap instant-redeem to expensive approval-gated
	  - three tasks: one completed (credits the child), one in progress,
	    one pending
	  - one pending redemption awaiting the parent's decision

NOTE:

	Seeding does not reset the database. Only use against a fresh store in
	development/demo environments.

SEE ALSO:
  - cmd/server/main.go: -seed flag
*/
package api

import (
	"context"
	"fmt"

	"github.com/hearth/points-engine/catalog"
	"github.com/hearth/points-engine/points"
	"github.com/hearth/points-engine/tasks"
)

// Demo identifiers, stable so manual curl sessions can reference them.
const (
	DemoFamilyID points.FamilyID = "demo-family"
	DemoParentID points.UserID   = "demo-parent"
	DemoChildID  points.UserID   = "demo-child"
)

// Seed loads the demo family into the store via the regular services, so
// every seeded record went through the same validation and crediting paths
// as API traffic.
func (h *Handler) Seed(ctx context.Context) error {
	rewardDefs := []catalog.CreateRewardInput{
		{Name: "Extra screen time", Description: "30 minutes of screen time", PointCost: 20},
		{Name: "Pick the movie", Description: "Friday movie night pick", PointCost: 50},
		{Name: "Stay up late", Description: "One hour past bedtime", PointCost: 80, RequiresApproval: true},
		{Name: "Trip to the arcade", Description: "Weekend arcade visit", PointCost: 300, RequiresApproval: true},
	}

	var approvalGated *points.Reward
	for _, def := range rewardDefs {
		reward, err := h.Catalog.Create(ctx, DemoFamilyID, DemoParentID, def)
		if err != nil {
			return fmt.Errorf("seed reward %q: %w", def.Name, err)
		}
		if reward.RequiresApproval && approvalGated == nil {
			approvalGated = reward
		}
	}

	taskDefs := []struct {
		in       tasks.CreateTaskInput
		complete bool
		progress bool
	}{
		{in: tasks.CreateTaskInput{Title: "Clean your room", Description: "Vacuum included", AssigneeID: DemoChildID, Points: 40}, complete: true},
		{in: tasks.CreateTaskInput{Title: "Do the dishes", AssigneeID: DemoChildID, Points: 25}, complete: true},
		{in: tasks.CreateTaskInput{Title: "Walk the dog", AssigneeID: DemoChildID, Points: 15}, progress: true},
		{in: tasks.CreateTaskInput{Title: "Homework before dinner", AssigneeID: DemoChildID, Points: 30}},
	}

	for _, def := range taskDefs {
		task, err := h.Tasks.Create(ctx, DemoFamilyID, DemoParentID, def.in)
		if err != nil {
			return fmt.Errorf("seed task %q: %w", def.in.Title, err)
		}
		switch {
		case def.complete:
			if _, _, err := h.Tasks.Complete(ctx, task.ID, DemoFamilyID); err != nil {
				return fmt.Errorf("seed complete task %q: %w", def.in.Title, err)
			}
		case def.progress:
			status := points.TaskInProgress
			if _, _, err := h.Tasks.Update(ctx, task.ID, DemoFamilyID, tasks.UpdateTaskInput{Status: &status}); err != nil {
				return fmt.Errorf("seed start task %q: %w", def.in.Title, err)
			}
		}
	}

	// The child now has 65 points; leave one approval-gated redemption
	// pending so the decision flow has something to operate on.
	if approvalGated != nil {
		if _, err := h.Workflow.Create(ctx, approvalGated.ID, DemoChildID, DemoFamilyID); err != nil {
			return fmt.Errorf("seed redemption: %w", err)
		}
	}

	return nil
}
