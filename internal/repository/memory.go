package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"prize-pool/internal/model"
)

// MemoryRewardRepository keeps rewards in process memory. It is used when no
// database is configured and in tests.
type MemoryRewardRepository struct {
	mu      sync.RWMutex
	nextID  int64
	rewards map[int64]model.Reward
}

// NewMemoryRewardRepository creates an empty in-memory reward store.
func NewMemoryRewardRepository() *MemoryRewardRepository {
	return &MemoryRewardRepository{
		nextID:  1,
		rewards: make(map[int64]model.Reward),
	}
}

// List returns copies of every reward ordered by sort order, then id.
func (r *MemoryRewardRepository) List(ctx context.Context) ([]model.Reward, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Reward, 0, len(r.rewards))
	for _, reward := range r.rewards {
		out = append(out, reward.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetByID retrieves a reward by id.
func (r *MemoryRewardRepository) GetByID(ctx context.Context, id int64) (model.Reward, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reward, ok := r.rewards[id]
	if !ok {
		return model.Reward{}, ErrRewardNotFound
	}
	return reward.Clone(), nil
}

// Create stores a reward under the next id.
func (r *MemoryRewardRepository) Create(ctx context.Context, reward model.Reward) (model.Reward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reward = reward.Clone()
	reward.ID = r.nextID
	r.nextID++
	r.rewards[reward.ID] = reward
	return reward.Clone(), nil
}

// Update replaces an existing reward.
func (r *MemoryRewardRepository) Update(ctx context.Context, reward model.Reward) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rewards[reward.ID]; !ok {
		return ErrRewardNotFound
	}
	r.rewards[reward.ID] = reward.Clone()
	return nil
}

// Delete removes a reward.
func (r *MemoryRewardRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rewards[id]; !ok {
		return ErrRewardNotFound
	}
	delete(r.rewards, id)
	return nil
}

// UpdateOrders writes new sort orders by id. Nothing is written if any id is
// unknown.
func (r *MemoryRewardRepository) UpdateOrders(ctx context.Context, orders map[int64]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range orders {
		if _, ok := r.rewards[id]; !ok {
			return ErrRewardNotFound
		}
	}
	now := time.Now()
	for id, order := range orders {
		reward := r.rewards[id]
		reward.Order = order
		reward.UpdatedAt = now
		r.rewards[id] = reward
	}
	return nil
}

// MemorySettingsRepository keeps the spin settings in process memory.
type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings *model.SpinSettings
}

// NewMemorySettingsRepository creates an empty in-memory settings store.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{}
}

// Get returns the stored settings or ErrSettingsNotFound.
func (r *MemorySettingsRepository) Get(ctx context.Context) (model.SpinSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.settings == nil {
		return model.SpinSettings{}, ErrSettingsNotFound
	}
	s := *r.settings
	s.EligibleTiers = s.EligibleTiers.Clone()
	return s, nil
}

// Save replaces the stored settings.
func (r *MemorySettingsRepository) Save(ctx context.Context, s model.SpinSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.EligibleTiers = s.EligibleTiers.Clone()
	r.settings = &s
	return nil
}

// MemorySpinRepository keeps spin records in process memory.
type MemorySpinRepository struct {
	mu      sync.RWMutex
	nextID  int64
	records []model.SpinRecord
}

// NewMemorySpinRepository creates an empty in-memory spin store.
func NewMemorySpinRepository() *MemorySpinRepository {
	return &MemorySpinRepository{nextID: 1}
}

// Create appends a spin record under the next id.
func (r *MemorySpinRepository) Create(ctx context.Context, rec model.SpinRecord) (model.SpinRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = r.nextID
	r.nextID++
	r.records = append(r.records, rec)
	return rec, nil
}

// LastByUserID returns the user's most recent spin, or nil.
func (r *MemorySpinRepository) LastByUserID(ctx context.Context, userID int64) (*model.SpinRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *model.SpinRecord
	for i := range r.records {
		rec := r.records[i]
		if rec.UserID != userID {
			continue
		}
		if last == nil || !rec.CreatedAt.Before(last.CreatedAt) {
			c := rec
			last = &c
		}
	}
	return last, nil
}

// CountSince counts the user's spins at or after since.
func (r *MemorySpinRepository) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rec := range r.records {
		if rec.UserID == userID && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// GetByUserID returns the user's spins, newest first.
func (r *MemorySpinRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]model.SpinRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.SpinRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID == userID {
			out = append(out, r.records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StatsSince aggregates wins and paid amounts per reward, most wins first.
func (r *MemorySpinRepository) StatsSince(ctx context.Context, since time.Time) ([]model.RewardStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byReward := make(map[int64]*model.RewardStat)
	for _, rec := range r.records {
		if rec.RewardID == nil || rec.CreatedAt.Before(since) {
			continue
		}
		s, ok := byReward[*rec.RewardID]
		if !ok {
			s = &model.RewardStat{RewardID: *rec.RewardID, Label: rec.Label}
			byReward[*rec.RewardID] = s
		}
		s.TotalWins++
		s.TotalPaid += rec.Amount
	}

	out := make([]model.RewardStat, 0, len(byReward))
	for _, s := range byReward {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalWins != out[j].TotalWins {
			return out[i].TotalWins > out[j].TotalWins
		}
		return out[i].RewardID < out[j].RewardID
	})
	return out, nil
}
