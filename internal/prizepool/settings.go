package prizepool

import (
	"time"

	"prize-pool/internal/model"
)

// Spin settings limits.
const (
	MinCooldownHours = 1
	MaxCooldownHours = 24
	MinSpinsPerDay   = 1
	MaxSpinsPerDay   = 50
)

// ValidateSettings checks a complete settings value.
func ValidateSettings(s model.SpinSettings) error {
	if !s.SpinMode.Valid() {
		return validationError("spinMode", "unknown spin mode %q", s.SpinMode)
	}
	if s.CooldownPeriod < MinCooldownHours || s.CooldownPeriod > MaxCooldownHours {
		return validationError("cooldownPeriod", "cooldown must be between %d and %d hours",
			MinCooldownHours, MaxCooldownHours)
	}
	if s.MaxSpinsPerDay < MinSpinsPerDay || s.MaxSpinsPerDay > MaxSpinsPerDay {
		return validationError("maxSpinsPerDay", "max spins per day must be between %d and %d",
			MinSpinsPerDay, MaxSpinsPerDay)
	}
	if _, err := NormalizeTiers("eligibleTiers", s.EligibleTiers); err != nil {
		return err
	}
	if s.StartDate != nil && s.EndDate != nil && !s.StartDate.Before(*s.EndDate) {
		return validationError("endDate", "end date must be after start date")
	}
	return nil
}

// ApplySettingsPatch merges patch into current, normalizes the tier set and
// validates the merged value as a whole.
func ApplySettingsPatch(current model.SpinSettings, patch model.SpinSettingsPatch, now time.Time) (model.SpinSettings, error) {
	next := current
	next.EligibleTiers = current.EligibleTiers.Clone()

	if patch.SpinMode != nil {
		next.SpinMode = *patch.SpinMode
	}
	if patch.CooldownPeriod != nil {
		next.CooldownPeriod = *patch.CooldownPeriod
	}
	if patch.MaxSpinsPerDay != nil {
		next.MaxSpinsPerDay = *patch.MaxSpinsPerDay
	}
	if patch.EligibleTiers != nil {
		next.EligibleTiers = patch.EligibleTiers.Clone()
	}
	if patch.ClearStartDate {
		next.StartDate = nil
	} else if patch.StartDate != nil {
		t := *patch.StartDate
		next.StartDate = &t
	}
	if patch.ClearEndDate {
		next.EndDate = nil
	} else if patch.EndDate != nil {
		t := *patch.EndDate
		next.EndDate = &t
	}

	if err := ValidateSettings(next); err != nil {
		return model.SpinSettings{}, err
	}
	tiers, _ := NormalizeTiers("eligibleTiers", next.EligibleTiers)
	next.EligibleTiers = tiers
	next.UpdatedAt = now
	return next, nil
}

// WithinWindow reports whether t falls in [startDate, endDate). Missing
// bounds are open.
func WithinWindow(s model.SpinSettings, t time.Time) bool {
	if s.StartDate != nil && t.Before(*s.StartDate) {
		return false
	}
	if s.EndDate != nil && !t.Before(*s.EndDate) {
		return false
	}
	return true
}

// ValidateSettingsPatch checks the fields present in patch on their own.
// The merged result is validated again by ApplySettingsPatch.
func ValidateSettingsPatch(patch model.SpinSettingsPatch) error {
	if patch.SpinMode != nil && !patch.SpinMode.Valid() {
		return validationError("spinMode", "unknown spin mode %q", *patch.SpinMode)
	}
	if c := patch.CooldownPeriod; c != nil && (*c < MinCooldownHours || *c > MaxCooldownHours) {
		return validationError("cooldownPeriod", "cooldown must be between %d and %d hours",
			MinCooldownHours, MaxCooldownHours)
	}
	if n := patch.MaxSpinsPerDay; n != nil && (*n < MinSpinsPerDay || *n > MaxSpinsPerDay) {
		return validationError("maxSpinsPerDay", "max spins per day must be between %d and %d",
			MinSpinsPerDay, MaxSpinsPerDay)
	}
	if patch.EligibleTiers != nil {
		if _, err := NormalizeTiers("eligibleTiers", patch.EligibleTiers); err != nil {
			return err
		}
	}
	if patch.StartDate != nil && patch.EndDate != nil && !patch.StartDate.Before(*patch.EndDate) {
		return validationError("endDate", "end date must be after start date")
	}
	return nil
}
