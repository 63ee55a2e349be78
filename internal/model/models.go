// Package model defines the data models for the prize pool service.
package model

import "time"

// RewardType is the kind of payout a reward grants.
type RewardType string

// Reward types. Amount units depend on the type.
const (
	RewardCoins   RewardType = "Coins"
	RewardXP      RewardType = "XP"
	RewardCoupons RewardType = "Coupons"
)

// RewardTypes returns all reward types in display order.
func RewardTypes() []RewardType {
	return []RewardType{RewardCoins, RewardXP, RewardCoupons}
}

// Valid reports whether t is a known reward type.
func (t RewardType) Valid() bool {
	switch t {
	case RewardCoins, RewardXP, RewardCoupons:
		return true
	}
	return false
}

// Tier is a user segmentation label.
type Tier string

// Tiers. TierAll is a sentinel meaning "every tier" and never appears together
// with a specific tier in a normalized set.
const (
	TierAll      Tier = "All Tiers"
	TierBronze   Tier = "Bronze"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// SpecificTiers returns the concrete tiers in canonical order.
func SpecificTiers() []Tier {
	return []Tier{TierBronze, TierGold, TierPlatinum}
}

// Valid reports whether t is a known tier label (including the sentinel).
func (t Tier) Valid() bool {
	switch t {
	case TierAll, TierBronze, TierGold, TierPlatinum:
		return true
	}
	return false
}

// TierSet is a set of tiers kept as a slice in canonical order.
type TierSet []Tier

// Has reports whether the set literally contains t.
func (s TierSet) Has(t Tier) bool {
	for _, v := range s {
		if v == t {
			return true
		}
	}
	return false
}

// Clone returns a copy of the set.
func (s TierSet) Clone() TierSet {
	if s == nil {
		return nil
	}
	out := make(TierSet, len(s))
	copy(out, s)
	return out
}

// Reward is a single prize pool entry.
type Reward struct {
	ID             int64      `json:"id" db:"id"`
	Label          string     `json:"label" db:"label"`
	Type           RewardType `json:"type" db:"type"`
	Amount         float64    `json:"amount" db:"amount"`
	Probability    float64    `json:"probability" db:"probability"`
	TierVisibility TierSet    `json:"tierVisibility" db:"tier_visibility"`
	Active         bool       `json:"active" db:"active"`
	Order          int        `json:"order" db:"sort_order"`
	Icon           string     `json:"icon,omitempty" db:"icon"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// Clone returns a deep copy of the reward.
func (r Reward) Clone() Reward {
	r.TierVisibility = r.TierVisibility.Clone()
	return r
}

// RewardInput carries the fields of a reward to be created.
type RewardInput struct {
	Label          string     `json:"label"`
	Type           RewardType `json:"type"`
	Amount         float64    `json:"amount"`
	Probability    float64    `json:"probability"`
	TierVisibility TierSet    `json:"tierVisibility"`
	Active         bool       `json:"active"`
	Icon           string     `json:"icon,omitempty"`
}

// RewardPatch carries a partial update. Nil fields are left untouched.
type RewardPatch struct {
	Label          *string     `json:"label,omitempty"`
	Type           *RewardType `json:"type,omitempty"`
	Amount         *float64    `json:"amount,omitempty"`
	Probability    *float64    `json:"probability,omitempty"`
	TierVisibility TierSet     `json:"tierVisibility,omitempty"`
	Active         *bool       `json:"active,omitempty"`
	Icon           *string     `json:"icon,omitempty"`
}

// SpinMode controls how a user earns a spin.
type SpinMode string

// Spin modes.
const (
	SpinModeFree    SpinMode = "free"
	SpinModeAdBased SpinMode = "ad-based"
)

// Valid reports whether m is a known spin mode.
func (m SpinMode) Valid() bool {
	return m == SpinModeFree || m == SpinModeAdBased
}

// SpinSettings holds the wheel-wide spin configuration.
type SpinSettings struct {
	SpinMode       SpinMode   `json:"spinMode"`
	CooldownPeriod int        `json:"cooldownPeriod"` // hours
	MaxSpinsPerDay int        `json:"maxSpinsPerDay"`
	EligibleTiers  TierSet    `json:"eligibleTiers"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// DefaultSpinSettings returns the settings used before an admin saves any.
func DefaultSpinSettings() SpinSettings {
	return SpinSettings{
		SpinMode:       SpinModeFree,
		CooldownPeriod: 24,
		MaxSpinsPerDay: 1,
		EligibleTiers:  TierSet{TierAll},
	}
}

// SpinSettingsPatch carries a partial settings update.
// ClearStartDate/ClearEndDate remove the respective bound of the window.
type SpinSettingsPatch struct {
	SpinMode       *SpinMode  `json:"spinMode,omitempty"`
	CooldownPeriod *int       `json:"cooldownPeriod,omitempty"`
	MaxSpinsPerDay *int       `json:"maxSpinsPerDay,omitempty"`
	EligibleTiers  TierSet    `json:"eligibleTiers,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	ClearStartDate bool       `json:"clearStartDate,omitempty"`
	ClearEndDate   bool       `json:"clearEndDate,omitempty"`
}

// SpinRecord is the outcome of a single spin. RewardID is nil when the roll
// landed on the unallocated part of the wheel.
type SpinRecord struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"userId" db:"user_id"`
	Tier      Tier       `json:"tier" db:"tier"`
	RewardID  *int64     `json:"rewardId,omitempty" db:"reward_id"`
	Label     string     `json:"label,omitempty" db:"label"`
	Type      RewardType `json:"type,omitempty" db:"type"`
	Amount    float64    `json:"amount" db:"amount"`
	Roll      float64    `json:"roll" db:"roll"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// Won reports whether the spin produced a reward.
func (r SpinRecord) Won() bool {
	return r.RewardID != nil
}

// RewardStat aggregates spin outcomes for one reward.
type RewardStat struct {
	RewardID  int64   `json:"rewardId" db:"reward_id"`
	Label     string  `json:"label" db:"label"`
	TotalWins int64   `json:"totalWins" db:"total_wins"`
	TotalPaid float64 `json:"totalPaid" db:"total_paid"`
}
