package prizepool

import (
	"sort"
	"strings"

	"prize-pool/internal/model"
)

// StatusFilter selects rewards by their active flag.
type StatusFilter string

// Status filter values.
const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

// TypeAll matches every reward type.
const TypeAll = "all"

// Filter is the search/status/type view over the pool. The zero value
// matches everything.
type Filter struct {
	Search string       `json:"search,omitempty"`
	Status StatusFilter `json:"status,omitempty"`
	Type   string       `json:"type,omitempty"`
}

// IsZero reports whether the filter matches every reward.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" &&
		(f.Status == "" || f.Status == StatusAll) &&
		(f.Type == "" || f.Type == TypeAll)
}

// Validate rejects unknown status or type values.
func (f Filter) Validate() error {
	switch f.Status {
	case "", StatusAll, StatusActive, StatusInactive:
	default:
		return validationError("status", "unknown status filter %q", f.Status)
	}
	if f.Type != "" && f.Type != TypeAll && !model.RewardType(f.Type).Valid() {
		return validationError("type", "unknown type filter %q", f.Type)
	}
	return nil
}

// Match reports whether a single reward passes all three predicates.
func (f Filter) Match(r model.Reward) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(r.Label), term) &&
			!strings.Contains(strings.ToLower(string(r.Type)), term) {
			return false
		}
	}
	switch f.Status {
	case StatusActive:
		if !r.Active {
			return false
		}
	case StatusInactive:
		if r.Active {
			return false
		}
	}
	if f.Type != "" && f.Type != TypeAll && string(r.Type) != f.Type {
		return false
	}
	return true
}

// Project returns copies of the rewards that match f, sorted by order then id.
func Project(rewards []model.Reward, f Filter) []model.Reward {
	out := make([]model.Reward, 0, len(rewards))
	for _, r := range rewards {
		if f.Match(r) {
			out = append(out, r.Clone())
		}
	}
	SortByOrder(out)
	return out
}

// SortByOrder sorts rewards in place by order ascending, ties by id.
func SortByOrder(rewards []model.Reward) {
	sort.SliceStable(rewards, func(i, j int) bool {
		if rewards[i].Order != rewards[j].Order {
			return rewards[i].Order < rewards[j].Order
		}
		return rewards[i].ID < rewards[j].ID
	})
}
