// Package prizepool implements the spin-wheel prize pool rules: the probability
// budget, tier visibility, ordering, filtering and drawing. Every function is
// pure; callers own persistence and locking.
package prizepool

import (
	"fmt"

	"prize-pool/internal/model"
)

// Budget is the total probability, in percentage points, that active rewards
// may share.
const Budget = 100.0

// epsilon absorbs float error so 60+30+10 counts as exactly 100.
const epsilon = 1e-9

// BudgetSummary describes how the budget is used.
type BudgetSummary struct {
	ActiveTotal   float64 `json:"activeTotal"`
	Remaining     float64 `json:"remaining"`
	ActiveCount   int     `json:"activeCount"`
	InactiveCount int     `json:"inactiveCount"`
}

// ActiveTotal sums the probability of active rewards, skipping excludeID.
// Pass 0 to exclude nothing.
func ActiveTotal(rewards []model.Reward, excludeID int64) float64 {
	var total float64
	for _, r := range rewards {
		if !r.Active || (excludeID != 0 && r.ID == excludeID) {
			continue
		}
		total += r.Probability
	}
	return total
}

// RemainingBudget returns the room left for a new or edited reward.
func RemainingBudget(rewards []model.Reward, excludeID int64) float64 {
	return Budget - ActiveTotal(rewards, excludeID)
}

// CheckBudget fails with a budget error if an active candidate with the given
// probability would push the active total over the budget. Inactive
// candidates never count against the budget.
func CheckBudget(rewards []model.Reward, probability float64, active bool, excludeID int64) error {
	if !active {
		return nil
	}
	remaining := RemainingBudget(rewards, excludeID)
	if !(probability <= remaining+epsilon) {
		return &Error{
			Kind:  KindBudgetExceeded,
			Field: "probability",
			Message: fmt.Sprintf("probability %.2f exceeds remaining budget %.2f",
				probability, clampZero(remaining)),
		}
	}
	return nil
}

// Summarize reports budget usage for the whole pool.
func Summarize(rewards []model.Reward) BudgetSummary {
	s := BudgetSummary{ActiveTotal: ActiveTotal(rewards, 0)}
	for _, r := range rewards {
		if r.Active {
			s.ActiveCount++
		} else {
			s.InactiveCount++
		}
	}
	s.Remaining = clampZero(Budget - s.ActiveTotal)
	return s
}

func clampZero(v float64) float64 {
	if v < epsilon {
		return 0
	}
	return v
}
