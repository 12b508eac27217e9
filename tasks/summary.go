// summary.go - Family task statistics for the guardian dashboard.
//
// Rates are computed with decimal arithmetic so a 1/3 completion rate
// doesn't come out as 0.33333333333333331.
package tasks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hearth/points-engine/points"
)

// FamilySummary aggregates a family's task activity.
type FamilySummary struct {
	FamilyID           points.FamilyID
	TotalTasks         int
	CompletedTasks     int
	PendingTasks       int
	TotalPointsAwarded int64
	// CompletionRate is CompletedTasks / TotalTasks in [0, 1], zero when
	// the family has no tasks.
	CompletionRate decimal.Decimal
	// AvgPointsPerCompleted is TotalPointsAwarded / CompletedTasks, zero
	// when nothing is completed.
	AvgPointsPerCompleted decimal.Decimal
}

// Summary computes task statistics for a family. Only points that actually
// credited (CreditedAt set) count toward TotalPointsAwarded, so a completed
// zero-point task inflates the completion rate but not the points.
func (s *Service) Summary(ctx context.Context, familyID points.FamilyID) (*FamilySummary, error) {
	all, err := s.store.TasksByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}

	sum := &FamilySummary{
		FamilyID:              familyID,
		CompletionRate:        decimal.Zero,
		AvgPointsPerCompleted: decimal.Zero,
	}
	for _, t := range all {
		sum.TotalTasks++
		if t.Status == points.TaskCompleted {
			sum.CompletedTasks++
		}
		if t.CreditedAt != nil {
			sum.TotalPointsAwarded += t.Points
		}
	}
	sum.PendingTasks = sum.TotalTasks - sum.CompletedTasks

	if sum.TotalTasks > 0 {
		sum.CompletionRate = decimal.NewFromInt(int64(sum.CompletedTasks)).
			DivRound(decimal.NewFromInt(int64(sum.TotalTasks)), 4)
	}
	if sum.CompletedTasks > 0 {
		sum.AvgPointsPerCompleted = decimal.NewFromInt(sum.TotalPointsAwarded).
			DivRound(decimal.NewFromInt(int64(sum.CompletedTasks)), 2)
	}
	return sum, nil
}
