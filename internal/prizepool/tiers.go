package prizepool

import "prize-pool/internal/model"

// ToggleTier applies a checkbox change to a tier set and returns the new set.
// Selecting "All Tiers" replaces everything with the sentinel; selecting a
// specific tier drops the sentinel. A set never ends up empty: it falls back
// to {All Tiers}. The input set is not modified.
func ToggleTier(set model.TierSet, tier model.Tier, checked bool) model.TierSet {
	if tier == model.TierAll {
		// Unchecking the sentinel leaves nothing selected, which falls back
		// to the sentinel as well.
		return model.TierSet{model.TierAll}
	}

	next := make(model.TierSet, 0, len(set)+1)
	for _, t := range set {
		if t == model.TierAll || t == tier {
			continue
		}
		next = append(next, t)
	}
	if checked {
		next = append(next, tier)
	}
	return canonical(next)
}

// NormalizeTiers dedupes a tier set into canonical order. If the sentinel is
// mixed with specific tiers, the specific tiers win. Unknown labels are a
// validation error for the given field.
func NormalizeTiers(field string, set model.TierSet) (model.TierSet, error) {
	for _, t := range set {
		if !t.Valid() {
			return nil, validationError(field, "unknown tier %q", t)
		}
	}
	return canonical(set), nil
}

// TiersConsistent reports whether a set is non-empty and never mixes the
// sentinel with a specific tier.
func TiersConsistent(set model.TierSet) bool {
	if len(set) == 0 {
		return false
	}
	if set.Has(model.TierAll) {
		return len(set) == 1
	}
	return true
}

// TierIncludes reports whether a set grants visibility to tier.
func TierIncludes(set model.TierSet, tier model.Tier) bool {
	if len(set) == 0 || set.Has(model.TierAll) {
		return true
	}
	return set.Has(tier)
}

// canonical keeps specific tiers in Bronze, Gold, Platinum order and
// falls back to the sentinel when none remain.
func canonical(set model.TierSet) model.TierSet {
	out := make(model.TierSet, 0, len(set))
	for _, t := range model.SpecificTiers() {
		if set.Has(t) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return model.TierSet{model.TierAll}
	}
	return out
}
