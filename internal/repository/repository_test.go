// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"prize-pool/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a migrated connection pool.
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func newReward(label string, probability float64, order int) model.Reward {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return model.Reward{
		Label:          label,
		Type:           model.RewardCoins,
		Amount:         250,
		Probability:    probability,
		TierVisibility: model.TierSet{model.TierGold, model.TierPlatinum},
		Active:         true,
		Order:          order,
		Icon:           "https://cdn.example.com/coin.png",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ============================================================================
// RewardRepository Tests
// ============================================================================

func TestRewardRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRewardRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, newReward("Gold Coins", 25, 1))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Gold Coins", created.Label)
	assert.Equal(t, model.TierSet{model.TierGold, model.TierPlatinum}, created.TierVisibility)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Label, got.Label)
	assert.Equal(t, 25.0, got.Probability)
	assert.Equal(t, "https://cdn.example.com/coin.png", got.Icon)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrRewardNotFound)
}

func TestRewardRepository_ListOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRewardRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, newReward("Third", 10, 3))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newReward("First", 10, 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newReward("Second", 10, 2))
	require.NoError(t, err)

	rewards, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rewards, 3)
	assert.Equal(t, "First", rewards[0].Label)
	assert.Equal(t, "Second", rewards[1].Label)
	assert.Equal(t, "Third", rewards[2].Label)
}

func TestRewardRepository_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRewardRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, newReward("Gold Coins", 25, 1))
	require.NoError(t, err)

	created.Probability = 40
	created.Active = false
	created.TierVisibility = model.TierSet{model.TierAll}
	require.NoError(t, repo.Update(ctx, created))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.Probability)
	assert.False(t, got.Active)
	assert.Equal(t, model.TierSet{model.TierAll}, got.TierVisibility)

	created.ID = 99999
	assert.ErrorIs(t, repo.Update(ctx, created), ErrRewardNotFound)
}

func TestRewardRepository_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRewardRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, newReward("Gold Coins", 25, 1))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrRewardNotFound)
}

func TestRewardRepository_UpdateOrders(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRewardRepository(pool)
	ctx := context.Background()

	a, _ := repo.Create(ctx, newReward("A", 10, 1))
	b, _ := repo.Create(ctx, newReward("B", 10, 2))

	require.NoError(t, repo.UpdateOrders(ctx, map[int64]int{a.ID: 2, b.ID: 1}))

	rewards, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, rewards[0].ID)
	assert.Equal(t, a.ID, rewards[1].ID)

	// Unknown id rolls back the whole batch.
	err = repo.UpdateOrders(ctx, map[int64]int{a.ID: 7, 99999: 8})
	assert.ErrorIs(t, err, ErrRewardNotFound)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Order)
}

func TestRewardRepository_LabelUniqueIndex(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRewardRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, newReward("Gold Coins", 10, 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newReward("GOLD COINS", 10, 2))
	assert.Error(t, err)
}

// ============================================================================
// SettingsRepository Tests
// ============================================================================

func TestSettingsRepository_SaveAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)
	s := model.SpinSettings{
		SpinMode:       model.SpinModeAdBased,
		CooldownPeriod: 4,
		MaxSpinsPerDay: 10,
		EligibleTiers:  model.TierSet{model.TierBronze},
		StartDate:      &start,
		EndDate:        &end,
		UpdatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SpinModeAdBased, got.SpinMode)
	assert.Equal(t, 4, got.CooldownPeriod)
	assert.Equal(t, 10, got.MaxSpinsPerDay)
	assert.Equal(t, model.TierSet{model.TierBronze}, got.EligibleTiers)
	require.NotNil(t, got.StartDate)
	assert.True(t, start.Equal(*got.StartDate))

	// Second save overwrites the same row.
	s.MaxSpinsPerDay = 2
	s.EndDate = nil
	require.NoError(t, repo.Save(ctx, s))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MaxSpinsPerDay)
	assert.Nil(t, got.EndDate)
}

// ============================================================================
// SpinRepository Tests
// ============================================================================

func TestSpinRepository_CreateAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSpinRepository(pool)
	ctx := context.Background()

	rewardID := int64(7)
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := repo.Create(ctx, model.SpinRecord{UserID: 1, Tier: model.TierGold, RewardID: &rewardID, Label: "Gold Coins", Type: model.RewardCoins, Amount: 100, Roll: 5, CreatedAt: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.SpinRecord{UserID: 1, Tier: model.TierGold, Roll: 99, CreatedAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.SpinRecord{UserID: 2, Tier: model.TierBronze, RewardID: &rewardID, Label: "Gold Coins", Type: model.RewardCoins, Amount: 100, Roll: 1, CreatedAt: now})
	require.NoError(t, err)

	last, err := repo.LastByUserID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.False(t, last.Won())
	assert.Equal(t, 99.0, last.Roll)

	none, err := repo.LastByUserID(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, none)

	count, err := repo.CountSince(ctx, 1, now.Add(-90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	history, err := repo.GetByUserID(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 99.0, history[0].Roll)

	stats, err := repo.StatsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, rewardID, stats[0].RewardID)
	assert.Equal(t, int64(2), stats[0].TotalWins)
	assert.Equal(t, 200.0, stats[0].TotalPaid)
}
