package prizepool

import "prize-pool/internal/model"

// Draw picks the reward a roll in [0, 100) lands on. Active rewards visible
// to tier are laid out on the wheel in order, each taking a slice as wide as
// its probability. A roll past the last slice lands on the unallocated part of
// the wheel and returns ok=false.
func Draw(rewards []model.Reward, tier model.Tier, roll float64) (model.Reward, bool) {
	if roll < 0 || roll >= Budget {
		return model.Reward{}, false
	}
	var cumulative float64
	for _, r := range Pool(rewards, tier) {
		cumulative += r.Probability
		if roll < cumulative {
			return r, true
		}
	}
	return model.Reward{}, false
}

// Pool returns the live spin pool for a tier: active rewards the tier can
// see, in order.
func Pool(rewards []model.Reward, tier model.Tier) []model.Reward {
	live := Project(rewards, Filter{Status: StatusActive})
	out := live[:0]
	for _, r := range live {
		if TierIncludes(r.TierVisibility, tier) {
			out = append(out, r)
		}
	}
	return out
}
