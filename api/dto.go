/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (required headers, malformed JSON) is done in
  handlers; business validation lives in the domain services and surfaces
  through the shared error mapping.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/hearth/points-engine/points"
	"github.com/hearth/points-engine/tasks"
)

// =============================================================================
// RESPONSES
// =============================================================================

// BalanceDTO is the response for a balance lookup.
type BalanceDTO struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// RewardDTO represents a catalog reward in API responses.
type RewardDTO struct {
	ID               string `json:"id"`
	FamilyID         string `json:"family_id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	PointCost        int64  `json:"point_cost"`
	RequiresApproval bool   `json:"requires_approval"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toRewardDTO(r *points.Reward) RewardDTO {
	return RewardDTO{
		ID:               string(r.ID),
		FamilyID:         string(r.FamilyID),
		Name:             r.Name,
		Description:      r.Description,
		PointCost:        r.PointCost,
		RequiresApproval: r.RequiresApproval,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
}

// RedemptionDTO represents a redemption in API responses.
type RedemptionDTO struct {
	ID          string  `json:"id"`
	RewardID    string  `json:"reward_id"`
	UserID      string  `json:"user_id"`
	Status      string  `json:"status"`
	ApproverID  *string `json:"approver_id,omitempty"`
	RequestedAt string  `json:"requested_at"`
	DecidedAt   *string `json:"decided_at,omitempty"`
}

func toRedemptionDTO(r *points.Redemption) RedemptionDTO {
	dto := RedemptionDTO{
		ID:          string(r.ID),
		RewardID:    string(r.RewardID),
		UserID:      string(r.UserID),
		Status:      string(r.Status),
		RequestedAt: r.RequestedAt.Format(time.RFC3339),
	}
	if r.ApproverID != nil {
		s := string(*r.ApproverID)
		dto.ApproverID = &s
	}
	if r.DecidedAt != nil {
		s := r.DecidedAt.Format(time.RFC3339)
		dto.DecidedAt = &s
	}
	return dto
}

// TaskDTO represents a task in API responses.
type TaskDTO struct {
	ID          string  `json:"id"`
	FamilyID    string  `json:"family_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	AssigneeID  string  `json:"assignee_id"`
	Points      int64   `json:"points"`
	Status      string  `json:"status"`
	DueDate     *string `json:"due_date,omitempty"`
	CreditedAt  *string `json:"credited_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toTaskDTO(t *points.Task) TaskDTO {
	dto := TaskDTO{
		ID:          string(t.ID),
		FamilyID:    string(t.FamilyID),
		Title:       t.Title,
		Description: t.Description,
		AssigneeID:  string(t.AssigneeID),
		Points:      t.Points,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
	if t.DueDate != nil {
		s := t.DueDate.Format(time.RFC3339)
		dto.DueDate = &s
	}
	if t.CreditedAt != nil {
		s := t.CreditedAt.Format(time.RFC3339)
		dto.CreditedAt = &s
	}
	return dto
}

// CompletionDTO is the response for completing a task.
type CompletionDTO struct {
	Task          TaskDTO `json:"task"`
	PointsAwarded int64   `json:"points_awarded"`
}

// SummaryDTO is the family task summary.
type SummaryDTO struct {
	FamilyID              string `json:"family_id"`
	TotalTasks            int    `json:"total_tasks"`
	CompletedTasks        int    `json:"completed_tasks"`
	PendingTasks          int    `json:"pending_tasks"`
	TotalPointsAwarded    int64  `json:"total_points_awarded"`
	CompletionRate        string `json:"completion_rate"`
	AvgPointsPerCompleted string `json:"avg_points_per_completed"`
}

func toSummaryDTO(s *tasks.FamilySummary) SummaryDTO {
	return SummaryDTO{
		FamilyID:              string(s.FamilyID),
		TotalTasks:            s.TotalTasks,
		CompletedTasks:        s.CompletedTasks,
		PendingTasks:          s.PendingTasks,
		TotalPointsAwarded:    s.TotalPointsAwarded,
		CompletionRate:        s.CompletionRate.String(),
		AvgPointsPerCompleted: s.AvgPointsPerCompleted.String(),
	}
}

// CanDeleteDTO is the response for the reward deletion guard query.
type CanDeleteDTO struct {
	RewardID     string `json:"reward_id"`
	CanDelete    bool   `json:"can_delete"`
	PendingCount int    `json:"pending_count"`
}

// ErrorDTO is the uniform error response body.
type ErrorDTO struct {
	Error string `json:"error"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// CreateRewardRequest is the body for POST /api/rewards.
type CreateRewardRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	PointCost        int64  `json:"point_cost"`
	RequiresApproval bool   `json:"requires_approval"`
}

// UpdateRewardRequest is the body for PUT /api/rewards/{id}.
// Absent fields are left unchanged.
type UpdateRewardRequest struct {
	Name             *string `json:"name,omitempty"`
	Description      *string `json:"description,omitempty"`
	PointCost        *int64  `json:"point_cost,omitempty"`
	RequiresApproval *bool   `json:"requires_approval,omitempty"`
}

// DecisionRequest is the body for POST /api/redemptions/{id}/decision.
type DecisionRequest struct {
	Decision string `json:"decision"` // "approve" or "reject"
}

// CreateTaskRequest is the body for POST /api/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  string `json:"assignee_id"`
	Points      int64  `json:"points"`
	DueDate     string `json:"due_date,omitempty"` // RFC 3339
}

// UpdateTaskRequest is the body for PUT /api/tasks/{id}.
// Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Points      *int64  `json:"points,omitempty"`
	DueDate     *string `json:"due_date,omitempty"` // RFC 3339; "" clears it
	Status      *string `json:"status,omitempty"`
}
