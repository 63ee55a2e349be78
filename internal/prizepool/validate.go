package prizepool

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"prize-pool/internal/model"
)

// Field limits for a reward.
const (
	MaxLabelLength = 100
	MaxAmount      = 1_000_000.0
	MaxProbability = 100.0
)

var reLabel = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

// ValidateLabel checks the label format and its case-insensitive uniqueness
// among rewards other than excludeID.
func ValidateLabel(label string, rewards []model.Reward, excludeID int64) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return validationError("label", "label is required")
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return validationError("label", "label must be at most %d characters", MaxLabelLength)
	}
	if !reLabel.MatchString(label) {
		return validationError("label", "label may only contain letters, numbers and spaces")
	}
	for _, r := range rewards {
		if r.ID == excludeID && excludeID != 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(r.Label), label) {
			return validationError("label", "label %q is already used", label)
		}
	}
	return nil
}

// ValidateFields checks everything that does not depend on the rest of the
// pool: type, amount, probability and tier labels.
func ValidateFields(r model.Reward) error {
	if !r.Type.Valid() {
		return validationError("type", "unknown reward type %q", r.Type)
	}
	if err := checkAmount(r.Amount); err != nil {
		return err
	}
	if err := checkProbability(r.Probability); err != nil {
		return err
	}
	if _, err := NormalizeTiers("tierVisibility", r.TierVisibility); err != nil {
		return err
	}
	return nil
}

// ValidateInput checks a creation request without pool context. Clients use
// it before submitting; the server repeats the full check.
func ValidateInput(in model.RewardInput) error {
	if err := ValidateLabel(in.Label, nil, 0); err != nil {
		return err
	}
	return ValidateFields(fromInput(in))
}

// ValidateReward runs every rule against the pool: fields, label uniqueness
// and the probability budget. The candidate's own id is excluded from both
// the uniqueness and the budget check.
func ValidateReward(candidate model.Reward, rewards []model.Reward) error {
	if err := ValidateLabel(candidate.Label, rewards, candidate.ID); err != nil {
		return err
	}
	if err := ValidateFields(candidate); err != nil {
		return err
	}
	return CheckBudget(rewards, candidate.Probability, candidate.Active, candidate.ID)
}

// checkAmount and checkProbability reject NaN and infinities as well as
// out-of-range values. A NaN probability would poison every later budget sum.
func checkAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return validationError("amount", "amount must be a finite number")
	}
	if v <= 0 {
		return validationError("amount", "amount must be positive")
	}
	if v > MaxAmount {
		return validationError("amount", "amount must not exceed %.0f", MaxAmount)
	}
	return nil
}

func checkProbability(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return validationError("probability", "probability must be a finite number")
	}
	if v <= 0 {
		return validationError("probability", "probability must be positive")
	}
	if v > MaxProbability {
		return validationError("probability", "probability must not exceed %.0f", MaxProbability)
	}
	return nil
}

func fromInput(in model.RewardInput) model.Reward {
	return model.Reward{
		Label:          strings.TrimSpace(in.Label),
		Type:           in.Type,
		Amount:         in.Amount,
		Probability:    in.Probability,
		TierVisibility: in.TierVisibility.Clone(),
		Active:         in.Active,
		Icon:           strings.TrimSpace(in.Icon),
	}
}

// ValidatePatch checks the fields present in patch without pool context.
// Budget and uniqueness need the pool and are left to the server.
func ValidatePatch(patch model.RewardPatch) error {
	if patch.Label != nil {
		if err := ValidateLabel(*patch.Label, nil, 0); err != nil {
			return err
		}
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return validationError("type", "unknown reward type %q", *patch.Type)
	}
	if patch.Amount != nil {
		if err := checkAmount(*patch.Amount); err != nil {
			return err
		}
	}
	if patch.Probability != nil {
		if err := checkProbability(*patch.Probability); err != nil {
			return err
		}
	}
	if patch.TierVisibility != nil {
		if _, err := NormalizeTiers("tierVisibility", patch.TierVisibility); err != nil {
			return err
		}
	}
	return nil
}
