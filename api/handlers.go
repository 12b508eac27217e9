/*
handlers.go - HTTP API handlers for the points economy

PURPOSE:
  Exposes the ledger, catalog, redemption workflow and task service via
  REST. Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Balances:
    GET    /api/users/{id}/balance          Current point balance

  Rewards:
    GET    /api/rewards                     List family rewards
    POST   /api/rewards                     Create reward
    GET    /api/rewards/{id}                Get reward
    PUT    /api/rewards/{id}                Update reward
    DELETE /api/rewards/{id}                Delete reward (guarded)
    GET    /api/rewards/{id}/can-delete     Deletion guard query
    POST   /api/rewards/{id}/redeem         Redeem reward

  Redemptions:
    GET    /api/redemptions                 Family redemption history
    GET    /api/redemptions/{id}            Get redemption
    POST   /api/redemptions/{id}/decision   Approve or reject

  Tasks:
    GET    /api/tasks                       List family tasks
    POST   /api/tasks                       Create task
    GET    /api/tasks/summary               Family task summary
    GET    /api/tasks/{id}                  Get task
    PUT    /api/tasks/{id}                  Update task (status drives credit)
    DELETE /api/tasks/{id}                  Delete task
    POST   /api/tasks/{id}/complete         Mark completed, credit assignee

REQUEST CONTEXT:
  Authentication and session issuance are external collaborators. The
  context they would attach travels in two explicit headers:
    X-Family-ID   the acting user's family
    X-User-ID     the acting user
  Requests missing either header are rejected with 400.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid amounts, insufficient balance
  - 403: Cross-family access
  - 404: Missing reward/redemption/task
  - 409: Invalid state transition, guarded deletion
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hearth/points-engine/catalog"
	"github.com/hearth/points-engine/ledger"
	"github.com/hearth/points-engine/points"
	"github.com/hearth/points-engine/redemption"
	"github.com/hearth/points-engine/tasks"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger   *ledger.Service
	Catalog  *catalog.Service
	Workflow *redemption.Workflow
	Tasks    *tasks.Service
}

// NewHandler wires the handler over a single store.
func NewHandler(store points.TxStore) *Handler {
	wf := redemption.New(store)
	return &Handler{
		Ledger:   ledger.New(store),
		Catalog:  catalog.New(store, wf),
		Workflow: wf,
		Tasks:    tasks.New(store),
	}
}

// requestContext extracts the explicit family/user context headers.
func requestContext(r *http.Request) (points.FamilyID, points.UserID, bool) {
	familyID := r.Header.Get("X-Family-ID")
	userID := r.Header.Get("X-User-ID")
	return points.FamilyID(familyID), points.UserID(userID), familyID != "" && userID != ""
}

// =============================================================================
// BALANCES
// =============================================================================

// GetBalance returns a user's current balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := points.UserID(chi.URLParam(r, "id"))
	if userID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "user id is required")
		return
	}

	balance, err := h.Ledger.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{UserID: string(userID), Balance: balance})
}

// =============================================================================
// REWARDS
// =============================================================================

// ListRewards returns the family's rewards, cheapest first.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	rewards, err := h.Catalog.List(r.Context(), familyID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]RewardDTO, 0, len(rewards))
	for _, rw := range rewards {
		out = append(out, toRewardDTO(rw))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateReward adds a reward to the family catalog.
func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	familyID, userID, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	var req CreateRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reward, err := h.Catalog.Create(r.Context(), familyID, userID, catalog.CreateRewardInput{
		Name:             req.Name,
		Description:      req.Description,
		PointCost:        req.PointCost,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRewardDTO(reward))
}

// GetReward returns one reward.
func (h *Handler) GetReward(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	reward, err := h.Catalog.Get(r.Context(), points.RewardID(chi.URLParam(r, "id")), familyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRewardDTO(reward))
}

// UpdateReward applies a partial update to a reward.
func (h *Handler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	var req UpdateRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reward, err := h.Catalog.Update(r.Context(), points.RewardID(chi.URLParam(r, "id")), familyID, catalog.UpdateRewardInput{
		Name:             req.Name,
		Description:      req.Description,
		PointCost:        req.PointCost,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRewardDTO(reward))
}

// DeleteReward removes a reward unless pending redemptions block it.
func (h *Handler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	if err := h.Catalog.Delete(r.Context(), points.RewardID(chi.URLParam(r, "id")), familyID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CanDeleteReward reports whether the deletion guard would allow removal.
func (h *Handler) CanDeleteReward(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	rewardID := points.RewardID(chi.URLParam(r, "id"))
	// Family-scope the lookup before answering.
	if _, err := h.Catalog.Get(r.Context(), rewardID, familyID); err != nil {
		writeError(w, err)
		return
	}

	pending, err := h.Workflow.CountPendingByReward(r.Context(), rewardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CanDeleteDTO{
		RewardID:     string(rewardID),
		CanDelete:    pending == 0,
		PendingCount: pending,
	})
}

// RedeemReward enters the redemption workflow for the acting user.
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	familyID, userID, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	red, err := h.Workflow.Create(r.Context(), points.RewardID(chi.URLParam(r, "id")), userID, familyID)
	if err != nil {
		if errors.Is(err, points.ErrInsufficientBalance) {
			insufficientBalanceTotal.Inc()
		}
		writeError(w, err)
		return
	}
	redemptionsCreatedTotal.WithLabelValues(string(red.Status)).Inc()
	writeJSON(w, http.StatusCreated, toRedemptionDTO(red))
}

// =============================================================================
// REDEMPTIONS
// =============================================================================

// ListRedemptions returns the family's redemption history, newest first.
// An optional ?status= filter narrows it (e.g. the pending approval inbox).
func (h *Handler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	reds, err := h.Workflow.ListByFamily(r.Context(), familyID)
	if err != nil {
		writeError(w, err)
		return
	}

	statusFilter := r.URL.Query().Get("status")
	out := make([]RedemptionDTO, 0, len(reds))
	for _, red := range reds {
		if statusFilter != "" && string(red.Status) != statusFilter {
			continue
		}
		out = append(out, toRedemptionDTO(red))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRedemption returns one redemption.
func (h *Handler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	red, err := h.Workflow.Get(r.Context(), points.RedemptionID(chi.URLParam(r, "id")), familyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionDTO(red))
}

// DecideRedemption applies a guardian's approve/reject decision.
func (h *Handler) DecideRedemption(w http.ResponseWriter, r *http.Request) {
	familyID, userID, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	red, err := h.Workflow.Decide(r.Context(),
		points.RedemptionID(chi.URLParam(r, "id")),
		userID, familyID, points.Decision(req.Decision))
	if err != nil {
		if errors.Is(err, points.ErrInsufficientBalance) {
			insufficientBalanceTotal.Inc()
		}
		writeError(w, err)
		return
	}
	redemptionDecisionsTotal.WithLabelValues(req.Decision).Inc()
	writeJSON(w, http.StatusOK, toRedemptionDTO(red))
}

// =============================================================================
// TASKS
// =============================================================================

// ListTasks returns the family's tasks, or the assignee's with ?assignee=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	var (
		list []*points.Task
		err  error
	)
	if assignee := r.URL.Query().Get("assignee"); assignee != "" {
		list, err = h.Tasks.ListByAssignee(r.Context(), familyID, points.UserID(assignee))
	} else {
		list, err = h.Tasks.List(r.Context(), familyID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]TaskDTO, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateTask adds a task for the family.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	familyID, userID, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in := tasks.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  points.UserID(req.AssigneeID),
		Points:      req.Points,
	}
	if req.DueDate != "" {
		due, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "due_date must be RFC 3339")
			return
		}
		in.DueDate = &due
	}

	task, err := h.Tasks.Create(r.Context(), familyID, userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskDTO(task))
}

// GetTask returns one task.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	task, err := h.Tasks.Get(r.Context(), points.TaskID(chi.URLParam(r, "id")), familyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(task))
}

// UpdateTask applies a partial update; a status change onto the completed
// edge credits the assignee.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in := tasks.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			// An explicit empty string clears the due date; the field
			// absent means "unchanged".
			in.ClearDueDate = true
		} else {
			due, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				writeErrorMsg(w, http.StatusBadRequest, "due_date must be RFC 3339")
				return
			}
			in.DueDate = &due
		}
	}
	if req.Status != nil {
		status := points.TaskStatus(*req.Status)
		in.Status = &status
	}

	task, awarded, err := h.Tasks.Update(r.Context(), points.TaskID(chi.URLParam(r, "id")), familyID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	if awarded > 0 {
		taskCreditsTotal.Inc()
	}
	writeJSON(w, http.StatusOK, CompletionDTO{Task: toTaskDTO(task), PointsAwarded: awarded})
}

// CompleteTask marks a task completed and credits the assignee once.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	task, awarded, err := h.Tasks.Complete(r.Context(), points.TaskID(chi.URLParam(r, "id")), familyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if awarded > 0 {
		taskCreditsTotal.Inc()
	}
	writeJSON(w, http.StatusOK, CompletionDTO{Task: toTaskDTO(task), PointsAwarded: awarded})
}

// DeleteTask removes a task (no point reversal for completed tasks).
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	if err := h.Tasks.Delete(r.Context(), points.TaskID(chi.URLParam(r, "id")), familyID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TaskSummary returns the family's task statistics.
func (h *Handler) TaskSummary(w http.ResponseWriter, r *http.Request) {
	familyID, _, ok := requestContext(r)
	if !ok {
		writeMissingContext(w)
		return
	}

	sum, err := h.Tasks.Summary(r.Context(), familyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorDTO{Error: msg})
}

func writeMissingContext(w http.ResponseWriter) {
	writeErrorMsg(w, http.StatusBadRequest, "X-Family-ID and X-User-ID headers are required")
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case points.IsNotFound(err):
		writeErrorMsg(w, http.StatusNotFound, err.Error())
	case errors.Is(err, points.ErrUnauthorized):
		writeErrorMsg(w, http.StatusForbidden, err.Error())
	case errors.Is(err, points.ErrInvalidStateTransition),
		errors.Is(err, catalog.ErrPendingRedemptions):
		writeErrorMsg(w, http.StatusConflict, err.Error())
	case points.IsClientError(err):
		writeErrorMsg(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeErrorMsg(w, http.StatusInternalServerError, "internal error")
	}
}
