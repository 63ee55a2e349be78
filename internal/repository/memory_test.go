package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"prize-pool/internal/model"
)

func TestMemoryRewardRepository_CRUD(t *testing.T) {
	repo := NewMemoryRewardRepository()
	ctx := context.Background()

	a, err := repo.Create(ctx, newReward("A", 10, 2))
	require.NoError(t, err)
	b, err := repo.Create(ctx, newReward("B", 10, 1))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	// Returned values are copies.
	list[0].TierVisibility[0] = model.TierBronze
	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierGold, got.TierVisibility[0])

	got.Probability = 55
	require.NoError(t, repo.Update(ctx, got))
	got, _ = repo.GetByID(ctx, b.ID)
	assert.Equal(t, 55.0, got.Probability)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), ErrRewardNotFound)
	assert.ErrorIs(t, repo.Update(ctx, a), ErrRewardNotFound)
	_, err = repo.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, ErrRewardNotFound)
}

func TestMemoryRewardRepository_UpdateOrdersAllOrNothing(t *testing.T) {
	repo := NewMemoryRewardRepository()
	ctx := context.Background()

	a, _ := repo.Create(ctx, newReward("A", 10, 1))

	err := repo.UpdateOrders(ctx, map[int64]int{a.ID: 5, 42: 6})
	assert.ErrorIs(t, err, ErrRewardNotFound)

	got, _ := repo.GetByID(ctx, a.ID)
	assert.Equal(t, 1, got.Order)

	require.NoError(t, repo.UpdateOrders(ctx, map[int64]int{a.ID: 5}))
	got, _ = repo.GetByID(ctx, a.ID)
	assert.Equal(t, 5, got.Order)
}

func TestMemorySettingsRepository(t *testing.T) {
	repo := NewMemorySettingsRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	s := model.DefaultSpinSettings()
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.SpinMode, got.SpinMode)
	assert.Equal(t, s.EligibleTiers, got.EligibleTiers)
}

func TestMemorySpinRepository(t *testing.T) {
	repo := NewMemorySpinRepository()
	ctx := context.Background()
	now := time.Now()
	rewardID := int64(3)

	_, _ = repo.Create(ctx, model.SpinRecord{UserID: 1, RewardID: &rewardID, Label: "A", Amount: 10, CreatedAt: now.Add(-3 * time.Hour)})
	_, _ = repo.Create(ctx, model.SpinRecord{UserID: 1, CreatedAt: now.Add(-time.Hour)})
	_, _ = repo.Create(ctx, model.SpinRecord{UserID: 2, RewardID: &rewardID, Label: "A", Amount: 10, CreatedAt: now})

	last, err := repo.LastByUserID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, now.Add(-time.Hour), last.CreatedAt)

	count, err := repo.CountSince(ctx, 1, now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	history, err := repo.GetByUserID(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Won())

	stats, err := repo.StatsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].TotalWins)
	assert.Equal(t, 20.0, stats[0].TotalPaid)
}

// TestMemoryRewardRepositoryIDsProperty tests that ids are unique and never
// reused after deletion.
func TestMemoryRewardRepositoryIDsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		repo := NewMemoryRewardRepository()
		ctx := context.Background()
		seen := make(map[int64]bool)
		var live []int64

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if len(live) > 0 && rapid.Bool().Draw(rt, "delete") {
				idx := rapid.IntRange(0, len(live)-1).Draw(rt, "idx")
				if err := repo.Delete(ctx, live[idx]); err != nil {
					rt.Fatalf("delete %d: %v", live[idx], err)
				}
				live = append(live[:idx], live[idx+1:]...)
				continue
			}
			r, err := repo.Create(ctx, newReward("R", 1, i+1))
			if err != nil {
				rt.Fatalf("create: %v", err)
			}
			if seen[r.ID] {
				rt.Fatalf("id %d reused", r.ID)
			}
			seen[r.ID] = true
			live = append(live, r.ID)
		}

		list, _ := repo.List(ctx)
		if len(list) != len(live) {
			rt.Fatalf("list has %d rewards, want %d", len(list), len(live))
		}
	})
}
