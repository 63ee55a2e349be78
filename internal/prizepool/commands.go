package prizepool

import (
	"strings"
	"time"

	"prize-pool/internal/model"
)

// Find returns the reward with the given id and its index in rewards.
func Find(rewards []model.Reward, id int64) (model.Reward, int, bool) {
	for i, r := range rewards {
		if r.ID == id {
			return r, i, true
		}
	}
	return model.Reward{}, -1, false
}

// NewReward validates a creation request against the pool and returns the
// entity to store. The id is assigned by the caller's store; order is
// max(order)+1.
func NewReward(rewards []model.Reward, in model.RewardInput, now time.Time) (model.Reward, error) {
	r := fromInput(in)
	tiers, err := NormalizeTiers("tierVisibility", r.TierVisibility)
	if err != nil {
		return model.Reward{}, err
	}
	r.TierVisibility = tiers
	if err := ValidateReward(r, rewards); err != nil {
		return model.Reward{}, err
	}
	r.Order = NextOrder(rewards)
	r.CreatedAt = now
	r.UpdatedAt = now
	return r, nil
}

// ApplyPatch merges patch into the reward with the given id and validates
// the result against the rest of the pool. The reward's previous probability
// does not count against its own budget. Activating an inactive reward runs
// the budget check at that moment.
func ApplyPatch(rewards []model.Reward, id int64, patch model.RewardPatch, now time.Time) (model.Reward, error) {
	current, _, ok := Find(rewards, id)
	if !ok {
		return model.Reward{}, NotFoundError(id)
	}

	next := current.Clone()
	if patch.Label != nil {
		next.Label = strings.TrimSpace(*patch.Label)
	}
	if patch.Type != nil {
		next.Type = *patch.Type
	}
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if patch.Probability != nil {
		next.Probability = *patch.Probability
	}
	if patch.TierVisibility != nil {
		next.TierVisibility = patch.TierVisibility.Clone()
	}
	if patch.Active != nil {
		next.Active = *patch.Active
	}
	if patch.Icon != nil {
		next.Icon = strings.TrimSpace(*patch.Icon)
	}

	tiers, err := NormalizeTiers("tierVisibility", next.TierVisibility)
	if err != nil {
		return model.Reward{}, err
	}
	next.TierVisibility = tiers

	if err := ValidateReward(next, rewards); err != nil {
		return model.Reward{}, err
	}
	next.UpdatedAt = now
	return next, nil
}

// Remove returns a copy of rewards without id. Other rewards keep their
// order and probability; gaps in order are left as they are.
func Remove(rewards []model.Reward, id int64) ([]model.Reward, error) {
	_, idx, ok := Find(rewards, id)
	if !ok {
		return nil, NotFoundError(id)
	}
	out := make([]model.Reward, 0, len(rewards)-1)
	out = append(out, rewards[:idx]...)
	out = append(out, rewards[idx+1:]...)
	return out, nil
}

// WithTier returns r with a tier checkbox applied.
func WithTier(r model.Reward, tier model.Tier, checked bool) model.Reward {
	next := r.Clone()
	next.TierVisibility = ToggleTier(r.TierVisibility, tier, checked)
	return next
}

// WithProbability returns r with a new probability. It does not validate.
func WithProbability(r model.Reward, probability float64) model.Reward {
	next := r.Clone()
	next.Probability = probability
	return next
}

// WithActive returns r with a new active flag. It does not validate.
func WithActive(r model.Reward, active bool) model.Reward {
	next := r.Clone()
	next.Active = active
	return next
}

// Replace returns a copy of rewards with the entry sharing r's id swapped
// for r.
func Replace(rewards []model.Reward, r model.Reward) []model.Reward {
	out := make([]model.Reward, len(rewards))
	for i, cur := range rewards {
		if cur.ID == r.ID {
			out[i] = r.Clone()
			continue
		}
		out[i] = cur.Clone()
	}
	return out
}
