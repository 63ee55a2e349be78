package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"prize-pool/internal/metrics"
	"prize-pool/internal/model"
	"prize-pool/internal/pkg/lock"
	"prize-pool/internal/prizepool"
	"prize-pool/internal/repository"
)

// PoolService owns the reward pool and spin settings. Every write runs under
// a pool-wide lock so the budget check and the store commit see the same
// snapshot.
type PoolService struct {
	rewards     RewardStore
	settings    SettingsStore
	locks       *lock.KeyLock
	lockTimeout time.Duration
	metrics     *metrics.Metrics
	now         func() time.Time
}

// PoolOption configures a PoolService.
type PoolOption func(*PoolService)

// WithPoolClock overrides the time source.
func WithPoolClock(now func() time.Time) PoolOption {
	return func(s *PoolService) { s.now = now }
}

// WithPoolMetrics attaches Prometheus collectors.
func WithPoolMetrics(m *metrics.Metrics) PoolOption {
	return func(s *PoolService) { s.metrics = m }
}

// WithLockTimeout bounds how long a write waits for the pool lock.
// Non-positive values keep the default.
func WithLockTimeout(d time.Duration) PoolOption {
	return func(s *PoolService) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewPoolService creates a new PoolService instance.
func NewPoolService(rewards RewardStore, settings SettingsStore, locks *lock.KeyLock, opts ...PoolOption) *PoolService {
	s := &PoolService{
		rewards:     rewards,
		settings:    settings,
		locks:       locks,
		lockTimeout: 5 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ PoolAPI = (*PoolService)(nil)

func (s *PoolService) withLock(ctx context.Context, key string, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	if err := s.locks.Lock(lockCtx, key); err != nil {
		return fmt.Errorf("failed to acquire %s lock: %w", key, err)
	}
	defer s.locks.Unlock(key)
	return fn()
}

func (s *PoolService) loadRewards(ctx context.Context) ([]model.Reward, error) {
	rewards, err := s.rewards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return rewards, nil
}

// storeError maps a repository miss onto the domain not-found error.
func storeError(id int64, op string, err error) error {
	if errors.Is(err, repository.ErrRewardNotFound) {
		return prizepool.NotFoundError(id)
	}
	return fmt.Errorf("failed to %s reward: %w", op, err)
}

func (s *PoolService) publishBudget(rewards []model.Reward) {
	s.metrics.SetBudget(prizepool.ActiveTotal(rewards, 0))
}

// ListRewards returns the rewards matching f, sorted by order.
func (s *PoolService) ListRewards(ctx context.Context, f prizepool.Filter) ([]model.Reward, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	rewards, err := s.loadRewards(ctx)
	if err != nil {
		return nil, err
	}
	return prizepool.Project(rewards, f), nil
}

// GetReward returns a single reward.
func (s *PoolService) GetReward(ctx context.Context, id int64) (model.Reward, error) {
	r, err := s.rewards.GetByID(ctx, id)
	if err != nil {
		return model.Reward{}, storeError(id, "get", err)
	}
	return r, nil
}

// CreateReward validates and stores a new reward at the end of the order.
func (s *PoolService) CreateReward(ctx context.Context, in model.RewardInput) (model.Reward, error) {
	var created model.Reward
	err := s.withLock(ctx, poolLockKey, func() error {
		rewards, err := s.loadRewards(ctx)
		if err != nil {
			return err
		}
		candidate, err := prizepool.NewReward(rewards, in, s.now())
		if err != nil {
			return err
		}
		created, err = s.rewards.Create(ctx, candidate)
		if err != nil {
			return fmt.Errorf("failed to create reward: %w", err)
		}
		s.publishBudget(append(rewards, created))
		return nil
	})
	s.metrics.Mutation("create", err)
	if err != nil {
		log.Debug().Err(err).Str("label", in.Label).Msg("Reward create rejected")
		return model.Reward{}, err
	}

	log.Info().
		Int64("reward_id", created.ID).
		Str("label", created.Label).
		Float64("probability", created.Probability).
		Bool("active", created.Active).
		Msg("Reward created")
	return created, nil
}

// UpdateReward applies patch to the reward with the given id.
func (s *PoolService) UpdateReward(ctx context.Context, id int64, patch model.RewardPatch) (model.Reward, error) {
	var updated model.Reward
	err := s.withLock(ctx, poolLockKey, func() error {
		rewards, err := s.loadRewards(ctx)
		if err != nil {
			return err
		}
		updated, err = prizepool.ApplyPatch(rewards, id, patch, s.now())
		if err != nil {
			return err
		}
		if err := s.rewards.Update(ctx, updated); err != nil {
			return storeError(id, "update", err)
		}
		s.publishBudget(prizepool.Replace(rewards, updated))
		return nil
	})
	s.metrics.Mutation("update", err)
	if err != nil {
		log.Debug().Err(err).Int64("reward_id", id).Msg("Reward update rejected")
		return model.Reward{}, err
	}

	log.Info().
		Int64("reward_id", updated.ID).
		Float64("probability", updated.Probability).
		Bool("active", updated.Active).
		Msg("Reward updated")
	return updated, nil
}

// SetActive flips a reward's status. Activation is checked against the budget.
func (s *PoolService) SetActive(ctx context.Context, id int64, active bool) (model.Reward, error) {
	return s.UpdateReward(ctx, id, model.RewardPatch{Active: &active})
}

// DeleteReward removes a reward. Other rewards keep their order.
func (s *PoolService) DeleteReward(ctx context.Context, id int64) error {
	err := s.withLock(ctx, poolLockKey, func() error {
		rewards, err := s.loadRewards(ctx)
		if err != nil {
			return err
		}
		remaining, err := prizepool.Remove(rewards, id)
		if err != nil {
			return err
		}
		if err := s.rewards.Delete(ctx, id); err != nil {
			return storeError(id, "delete", err)
		}
		s.publishBudget(remaining)
		return nil
	})
	s.metrics.Mutation("delete", err)
	if err != nil {
		log.Debug().Err(err).Int64("reward_id", id).Msg("Reward delete rejected")
		return err
	}

	log.Info().Int64("reward_id", id).Msg("Reward deleted")
	return nil
}

// ReorderRewards moves an entry of the filtered view and writes the view's
// new orders back by id. The returned view is numbered 1..N. Under a filter
// the view's rewards swap their existing order slots among themselves, so
// rewards hidden by the filter are not touched and orders stay unique.
func (s *PoolService) ReorderRewards(ctx context.Context, f prizepool.Filter, from, to int) ([]model.Reward, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var reordered []model.Reward
	err := s.withLock(ctx, poolLockKey, func() error {
		rewards, err := s.loadRewards(ctx)
		if err != nil {
			return err
		}
		view := prizepool.Project(rewards, f)
		reordered, err = prizepool.Reorder(view, from, to)
		if err != nil {
			return err
		}
		changes := reorderChanges(rewards, view, reordered, f)
		if len(changes) == 0 {
			return nil
		}
		if err := s.rewards.UpdateOrders(ctx, changes); err != nil {
			return fmt.Errorf("failed to write reward orders: %w", err)
		}
		return nil
	})
	s.metrics.Mutation("reorder", err)
	if err != nil {
		log.Debug().Err(err).Int("from", from).Int("to", to).Msg("Reorder rejected")
		return nil, err
	}

	log.Info().Int("from", from).Int("to", to).Int("view_size", len(reordered)).Msg("Rewards reordered")
	return reordered, nil
}

// reorderChanges returns the order writes for a reorder. The unfiltered pool
// is renumbered 1..N. A filtered view reuses its own slots; if those collide
// the whole pool is renumbered first.
func reorderChanges(rewards, view, reordered []model.Reward, f prizepool.Filter) map[int64]int {
	if f.IsZero() {
		return prizepool.OrderChanges(view, reordered)
	}
	if changes, ok := prizepool.SlotOrders(view, reordered); ok {
		return changes
	}

	log.Warn().Int("view_size", len(view)).Msg("Duplicate reward orders found, renumbering pool")
	normalized := prizepool.Renumber(rewards)
	final := make(map[int64]int, len(normalized))
	for _, r := range normalized {
		final[r.ID] = r.Order
	}
	slotChanges, _ := prizepool.SlotOrders(prizepool.Project(normalized, f), reordered)
	for id, order := range slotChanges {
		final[id] = order
	}
	return prizepool.OrderChanges(rewards, withOrders(rewards, final))
}

func withOrders(rewards []model.Reward, orders map[int64]int) []model.Reward {
	out := make([]model.Reward, len(rewards))
	for i, r := range rewards {
		out[i] = r
		out[i].Order = orders[r.ID]
	}
	return out
}

// Budget summarizes how much of the probability budget is in use.
func (s *PoolService) Budget(ctx context.Context) (prizepool.BudgetSummary, error) {
	rewards, err := s.loadRewards(ctx)
	if err != nil {
		return prizepool.BudgetSummary{}, err
	}
	return prizepool.Summarize(rewards), nil
}

// GetSettings returns the stored spin settings, or the defaults if none
// have been saved yet.
func (s *PoolService) GetSettings(ctx context.Context) (model.SpinSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return model.DefaultSpinSettings(), nil
		}
		return model.SpinSettings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings merges patch into the current settings and saves the result.
func (s *PoolService) UpdateSettings(ctx context.Context, patch model.SpinSettingsPatch) (model.SpinSettings, error) {
	var next model.SpinSettings
	err := s.withLock(ctx, settingsLockKey, func() error {
		current, err := s.GetSettings(ctx)
		if err != nil {
			return err
		}
		next, err = prizepool.ApplySettingsPatch(current, patch, s.now())
		if err != nil {
			return err
		}
		if err := s.settings.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		return nil
	})
	s.metrics.Mutation("settings", err)
	if err != nil {
		log.Debug().Err(err).Msg("Settings update rejected")
		return model.SpinSettings{}, err
	}

	log.Info().
		Str("spin_mode", string(next.SpinMode)).
		Int("cooldown_hours", next.CooldownPeriod).
		Int("max_spins_per_day", next.MaxSpinsPerDay).
		Msg("Spin settings updated")
	return next, nil
}
