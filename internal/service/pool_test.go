package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prize-pool/internal/model"
	"prize-pool/internal/pkg/lock"
	"prize-pool/internal/prizepool"
	"prize-pool/internal/repository"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestPoolService() *PoolService {
	return NewPoolService(
		repository.NewMemoryRewardRepository(),
		repository.NewMemorySettingsRepository(),
		lock.NewKeyLock(),
		WithPoolClock(func() time.Time { return fixedNow }),
	)
}

func rewardInput(label string, probability float64, active bool) model.RewardInput {
	return model.RewardInput{
		Label:       label,
		Type:        model.RewardCoins,
		Amount:      100,
		Probability: probability,
		Active:      active,
	}
}

func mustCreate(t *testing.T, s *PoolService, label string, probability float64, active bool) model.Reward {
	t.Helper()
	r, err := s.CreateReward(context.Background(), rewardInput(label, probability, active))
	require.NoError(t, err)
	return r
}

func labels(rewards []model.Reward) []string {
	out := make([]string, len(rewards))
	for i, r := range rewards {
		out[i] = r.Label
	}
	return out
}

// ===== Create / Update / Delete =====

func TestPoolService_CreateAssignsOrderAndDefaults(t *testing.T) {
	s := newTestPoolService()

	a := mustCreate(t, s, "Gold Coins", 30, true)
	b := mustCreate(t, s, "Bonus XP", 20, true)

	assert.Equal(t, 1, a.Order)
	assert.Equal(t, 2, b.Order)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, model.TierSet{model.TierAll}, a.TierVisibility)
	assert.Equal(t, fixedNow, a.CreatedAt)
}

func TestPoolService_CreateBudgetExceeded(t *testing.T) {
	s := newTestPoolService()
	mustCreate(t, s, "A", 60, true)
	mustCreate(t, s, "B", 30, true)

	_, err := s.CreateReward(context.Background(), rewardInput("C", 15, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, prizepool.ErrBudgetExceeded)

	// Inactive rewards are exempt.
	_, err = s.CreateReward(context.Background(), rewardInput("C", 15, false))
	assert.NoError(t, err)

	// Exactly filling the budget is allowed.
	_, err = s.CreateReward(context.Background(), rewardInput("D", 10, true))
	assert.NoError(t, err)
}

func TestPoolService_CreateDuplicateLabel(t *testing.T) {
	s := newTestPoolService()
	mustCreate(t, s, "Gold Coins", 10, true)

	_, err := s.CreateReward(context.Background(), rewardInput("gold coins", 10, true))
	var perr *prizepool.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, prizepool.KindValidation, perr.Kind)
	assert.Equal(t, "label", perr.Field)
}

func TestPoolService_UpdateExcludesOwnProbability(t *testing.T) {
	s := newTestPoolService()
	a := mustCreate(t, s, "A", 50, true)
	mustCreate(t, s, "B", 40, true)

	p := 60.0
	updated, err := s.UpdateReward(context.Background(), a.ID, model.RewardPatch{Probability: &p})
	require.NoError(t, err)
	assert.Equal(t, 60.0, updated.Probability)

	p = 61
	_, err = s.UpdateReward(context.Background(), a.ID, model.RewardPatch{Probability: &p})
	assert.ErrorIs(t, err, prizepool.ErrBudgetExceeded)
}

func TestPoolService_SetActiveRechecksBudget(t *testing.T) {
	s := newTestPoolService()
	mustCreate(t, s, "A", 80, true)
	b := mustCreate(t, s, "B", 30, false)

	_, err := s.SetActive(context.Background(), b.ID, true)
	assert.ErrorIs(t, err, prizepool.ErrBudgetExceeded)

	got, err := s.GetReward(context.Background(), b.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestPoolService_DeactivateFreesBudget(t *testing.T) {
	s := newTestPoolService()
	a := mustCreate(t, s, "A", 40, true)
	mustCreate(t, s, "B", 50, true)

	_, err := s.SetActive(context.Background(), a.ID, false)
	require.NoError(t, err)

	summary, err := s.Budget(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50.0, summary.ActiveTotal, 1e-9)
	assert.InDelta(t, 50.0, summary.Remaining, 1e-9)
	assert.Equal(t, 1, summary.ActiveCount)
	assert.Equal(t, 1, summary.InactiveCount)

	got, err := s.GetReward(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.Probability)
}

func TestPoolService_UpdateNormalizesTiers(t *testing.T) {
	s := newTestPoolService()
	a := mustCreate(t, s, "A", 10, true)

	updated, err := s.UpdateReward(context.Background(), a.ID, model.RewardPatch{
		TierVisibility: model.TierSet{model.TierPlatinum, model.TierAll, model.TierBronze},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TierSet{model.TierBronze, model.TierPlatinum}, updated.TierVisibility)
}

func TestPoolService_NotFound(t *testing.T) {
	s := newTestPoolService()
	ctx := context.Background()

	_, err := s.UpdateReward(ctx, 404, model.RewardPatch{})
	assert.ErrorIs(t, err, prizepool.ErrNotFound)
	assert.ErrorIs(t, s.DeleteReward(ctx, 404), prizepool.ErrNotFound)
	_, err = s.GetReward(ctx, 404)
	assert.ErrorIs(t, err, prizepool.ErrNotFound)
}

func TestPoolService_DeleteLeavesOtherOrders(t *testing.T) {
	s := newTestPoolService()
	a := mustCreate(t, s, "A", 10, true)
	b := mustCreate(t, s, "B", 10, true)
	c := mustCreate(t, s, "C", 10, true)

	require.NoError(t, s.DeleteReward(context.Background(), b.ID))

	list, err := s.ListRewards(context.Background(), prizepool.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.Order, list[0].Order)
	assert.Equal(t, c.Order, list[1].Order)
	assert.Equal(t, 3, list[1].Order)
}

// ===== List / Reorder =====

func TestPoolService_ListFilters(t *testing.T) {
	s := newTestPoolService()
	mustCreate(t, s, "Gold Coins", 10, true)
	mustCreate(t, s, "Silver Coins", 10, false)
	_, err := s.CreateReward(context.Background(), model.RewardInput{
		Label: "Bonus", Type: model.RewardXP, Amount: 5, Probability: 5, Active: true,
	})
	require.NoError(t, err)

	list, err := s.ListRewards(context.Background(), prizepool.Filter{Search: "coins", Status: prizepool.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, []string{"Gold Coins"}, labels(list))

	list, err = s.ListRewards(context.Background(), prizepool.Filter{Search: "xp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bonus"}, labels(list))

	_, err = s.ListRewards(context.Background(), prizepool.Filter{Status: "archived"})
	assert.ErrorIs(t, err, prizepool.ErrValidation)
}

func TestPoolService_Reorder(t *testing.T) {
	s := newTestPoolService()
	for _, l := range []string{"A", "B", "C", "D"} {
		mustCreate(t, s, l, 10, true)
	}

	out, err := s.ReorderRewards(context.Background(), prizepool.Filter{}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A", "D"}, labels(out))

	list, err := s.ListRewards(context.Background(), prizepool.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A", "D"}, labels(list))
	for i, r := range list {
		assert.Equal(t, i+1, r.Order)
	}
}

func TestPoolService_ReorderFilteredWritesBackByID(t *testing.T) {
	s := newTestPoolService()
	a := mustCreate(t, s, "A", 10, true)
	hidden := mustCreate(t, s, "Hidden", 10, false)
	mustCreate(t, s, "B", 10, true)

	out, err := s.ReorderRewards(context.Background(), prizepool.Filter{Status: prizepool.StatusActive}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, labels(out))

	got, err := s.GetReward(context.Background(), hidden.ID)
	require.NoError(t, err)
	assert.Equal(t, hidden.Order, got.Order)

	got, err = s.GetReward(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Order)
}

func assertUniqueOrders(t *testing.T, s *PoolService) []model.Reward {
	t.Helper()
	list, err := s.ListRewards(context.Background(), prizepool.Filter{})
	require.NoError(t, err)
	seen := make(map[int]string, len(list))
	for _, r := range list {
		if prev, dup := seen[r.Order]; dup {
			t.Fatalf("%s and %s share order %d", prev, r.Label, r.Order)
		}
		seen[r.Order] = r.Label
	}
	return list
}

func TestPoolService_ReorderFilteredKeepsOrdersUnique(t *testing.T) {
	s := newTestPoolService()
	for _, l := range []string{"A", "h1", "B", "h2", "C"} {
		mustCreate(t, s, l, 10, l[0] != 'h')
	}

	out, err := s.ReorderRewards(context.Background(), prizepool.Filter{Status: prizepool.StatusActive}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, labels(out))
	for i, r := range out {
		assert.Equal(t, i+1, r.Order)
	}

	list := assertUniqueOrders(t, s)
	assert.Equal(t, []string{"C", "h1", "A", "h2", "B"}, labels(list))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, []int{list[0].Order, list[1].Order, list[2].Order, list[3].Order, list[4].Order})
}

func TestPoolService_ReorderFilteredRenumbersDuplicateOrders(t *testing.T) {
	repo := repository.NewMemoryRewardRepository()
	for _, r := range []model.Reward{
		{Label: "A", Type: model.RewardCoins, Amount: 1, Probability: 10, Active: true, Order: 1},
		{Label: "B", Type: model.RewardCoins, Amount: 1, Probability: 10, Active: true, Order: 1},
		{Label: "Hidden", Type: model.RewardCoins, Amount: 1, Probability: 10, Active: false, Order: 2},
	} {
		_, err := repo.Create(context.Background(), r)
		require.NoError(t, err)
	}
	s := NewPoolService(repo, repository.NewMemorySettingsRepository(), lock.NewKeyLock())

	out, err := s.ReorderRewards(context.Background(), prizepool.Filter{Status: prizepool.StatusActive}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, labels(out))

	list := assertUniqueOrders(t, s)
	assert.Equal(t, []string{"B", "A", "Hidden"}, labels(list))
}

func TestPoolService_ReorderInvalidRange(t *testing.T) {
	s := newTestPoolService()
	mustCreate(t, s, "A", 10, true)
	mustCreate(t, s, "B", 10, true)

	_, err := s.ReorderRewards(context.Background(), prizepool.Filter{}, 0, 2)
	assert.ErrorIs(t, err, prizepool.ErrInvalidRange)

	list, err := s.ListRewards(context.Background(), prizepool.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, labels(list))
}

// ===== Settings =====

func TestPoolService_SettingsDefaultsAndPatch(t *testing.T) {
	s := newTestPoolService()
	ctx := context.Background()

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSpinSettings(), got)

	mode := model.SpinModeAdBased
	spins := 5
	updated, err := s.UpdateSettings(ctx, model.SpinSettingsPatch{SpinMode: &mode, MaxSpinsPerDay: &spins})
	require.NoError(t, err)
	assert.Equal(t, model.SpinModeAdBased, updated.SpinMode)
	assert.Equal(t, 5, updated.MaxSpinsPerDay)
	assert.Equal(t, 24, updated.CooldownPeriod)

	bad := 0
	_, err = s.UpdateSettings(ctx, model.SpinSettingsPatch{CooldownPeriod: &bad})
	assert.ErrorIs(t, err, prizepool.ErrValidation)

	got, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 24, got.CooldownPeriod)
	assert.Equal(t, 5, got.MaxSpinsPerDay)
}

func TestPoolService_LockTimeout(t *testing.T) {
	locks := lock.NewKeyLock()
	s := NewPoolService(
		repository.NewMemoryRewardRepository(),
		repository.NewMemorySettingsRepository(),
		locks,
		WithLockTimeout(10*time.Millisecond),
	)
	require.True(t, locks.TryLock(poolLockKey))
	defer locks.Unlock(poolLockKey)

	_, err := s.CreateReward(context.Background(), rewardInput("A", 10, true))
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
}
