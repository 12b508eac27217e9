/*
errors.go - Centralized error taxonomy for the points economy

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  Packages wrap these with additional context; callers match with errors.Is
  and errors.As.

ERROR CATEGORIES:
  1. Ledger errors    - Invalid amounts, insufficient balance
  2. Lookup errors    - Missing rewards, redemptions, tasks
  3. Workflow errors  - Invalid state transitions, cross-family access

USAGE:
  if errors.Is(err, points.ErrInsufficientBalance) {
      // surface to caller; the losing side of a concurrent debit race
      // lands here as well
  }

SEE ALSO:
  - ledger/: Returns InvalidAmount / InsufficientBalance
  - redemption/: Returns the workflow errors
*/
package points

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a non-positive amount is passed to
	// Credit or Debit. Amounts are always positive integers.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance is returned when a debit would drive the
	// balance negative. The balance is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrRewardNotFound is returned when a referenced reward doesn't exist
	// (or isn't visible to the requesting family).
	ErrRewardNotFound = errors.New("reward not found")

	// ErrRedemptionNotFound is returned when a referenced redemption
	// doesn't exist.
	ErrRedemptionNotFound = errors.New("redemption not found")

	// ErrTaskNotFound is returned when a referenced task doesn't exist
	// (or isn't visible to the requesting family).
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnauthorized is returned on cross-family access: acting on a
	// reward or redemption that belongs to another family.
	ErrUnauthorized = errors.New("not authorized for this family")

	// ErrInvalidStateTransition is returned when a decision is made on a
	// redemption that is not Pending.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrValidation is returned for malformed input to create/update
	// operations (empty name, negative point cost, unknown status).
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	UserID    UserID
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %d, requested %d, short %d",
		e.UserID, e.Available, e.Requested, e.Requested-e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// InvalidTransitionError reports a decision made on a non-Pending redemption.
type InvalidTransitionError struct {
	RedemptionID RedemptionID
	Status       RedemptionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("redemption %s is %s; only pending redemptions can be decided",
		e.RedemptionID, e.Status)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a business-rule rejection (maps to HTTP 4xx, not 5xx).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRewardNotFound) ||
		errors.Is(err, ErrRedemptionNotFound) ||
		errors.Is(err, ErrTaskNotFound)
}
