// Package service provides business logic implementations.
package service

import (
	"context"
	"time"

	"prize-pool/internal/model"
	"prize-pool/internal/prizepool"
)

// RewardStore persists rewards. Implemented by repository.RewardRepository
// and repository.MemoryRewardRepository.
type RewardStore interface {
	List(ctx context.Context) ([]model.Reward, error)
	GetByID(ctx context.Context, id int64) (model.Reward, error)
	Create(ctx context.Context, reward model.Reward) (model.Reward, error)
	Update(ctx context.Context, reward model.Reward) error
	Delete(ctx context.Context, id int64) error
	UpdateOrders(ctx context.Context, orders map[int64]int) error
}

// SettingsStore persists the single spin settings object.
type SettingsStore interface {
	Get(ctx context.Context) (model.SpinSettings, error)
	Save(ctx context.Context, s model.SpinSettings) error
}

// SpinStore persists spin outcomes.
type SpinStore interface {
	Create(ctx context.Context, rec model.SpinRecord) (model.SpinRecord, error)
	LastByUserID(ctx context.Context, userID int64) (*model.SpinRecord, error)
	CountSince(ctx context.Context, userID int64, since time.Time) (int, error)
	GetByUserID(ctx context.Context, userID int64, limit int) ([]model.SpinRecord, error)
	StatsSince(ctx context.Context, since time.Time) ([]model.RewardStat, error)
}

// PoolAPI is the contract admin surfaces program against. PoolService serves
// it in process and client.Client serves it over HTTP.
type PoolAPI interface {
	ListRewards(ctx context.Context, f prizepool.Filter) ([]model.Reward, error)
	CreateReward(ctx context.Context, in model.RewardInput) (model.Reward, error)
	UpdateReward(ctx context.Context, id int64, patch model.RewardPatch) (model.Reward, error)
	DeleteReward(ctx context.Context, id int64) error
	ReorderRewards(ctx context.Context, f prizepool.Filter, from, to int) ([]model.Reward, error)
	GetSettings(ctx context.Context) (model.SpinSettings, error)
	UpdateSettings(ctx context.Context, patch model.SpinSettingsPatch) (model.SpinSettings, error)
}

// Lock keys.
const (
	poolLockKey     = "pool"
	settingsLockKey = "settings"
)
