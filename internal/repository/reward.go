// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prize-pool/internal/model"
)

// Common errors for repository operations.
var (
	ErrRewardNotFound   = errors.New("reward not found")
	ErrSettingsNotFound = errors.New("spin settings not found")
)

const rewardColumns = `id, label, type, amount, probability, tier_visibility, active, sort_order, icon, created_at, updated_at`

// RewardRepository handles reward persistence in PostgreSQL.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository creates a new RewardRepository instance.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// List returns every reward ordered by sort order, then id.
func (r *RewardRepository) List(ctx context.Context) ([]model.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards ORDER BY sort_order ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rewards: %w", err)
	}

	return rewards, nil
}

// GetByID retrieves a reward by id.
// Returns ErrRewardNotFound if the reward does not exist.
func (r *RewardRepository) GetByID(ctx context.Context, id int64) (model.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`

	reward, err := scanReward(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Reward{}, ErrRewardNotFound
		}
		return model.Reward{}, fmt.Errorf("failed to get reward: %w", err)
	}
	return reward, nil
}

// Create inserts a reward and returns it with its assigned id.
func (r *RewardRepository) Create(ctx context.Context, reward model.Reward) (model.Reward, error) {
	query := `
		INSERT INTO rewards (label, type, amount, probability, tier_visibility, active, sort_order, icon, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + rewardColumns

	created, err := scanReward(r.pool.QueryRow(ctx, query,
		reward.Label,
		string(reward.Type),
		reward.Amount,
		reward.Probability,
		tiersToStrings(reward.TierVisibility),
		reward.Active,
		reward.Order,
		reward.Icon,
		reward.CreatedAt,
		reward.UpdatedAt,
	))
	if err != nil {
		return model.Reward{}, fmt.Errorf("failed to create reward: %w", err)
	}
	return created, nil
}

// Update overwrites every mutable column of an existing reward.
// Returns ErrRewardNotFound if the reward does not exist.
func (r *RewardRepository) Update(ctx context.Context, reward model.Reward) error {
	const query = `
		UPDATE rewards
		SET label = $2, type = $3, amount = $4, probability = $5, tier_visibility = $6,
		    active = $7, sort_order = $8, icon = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		reward.ID,
		reward.Label,
		string(reward.Type),
		reward.Amount,
		reward.Probability,
		tiersToStrings(reward.TierVisibility),
		reward.Active,
		reward.Order,
		reward.Icon,
		reward.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRewardNotFound
	}
	return nil
}

// Delete removes a reward. Past spin records keep their copy of the label.
// Returns ErrRewardNotFound if the reward does not exist.
func (r *RewardRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRewardNotFound
	}
	return nil
}

// UpdateOrders writes new sort orders by id in a single transaction.
func (r *RewardRepository) UpdateOrders(ctx context.Context, orders map[int64]int) error {
	if len(orders) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for id, order := range orders {
			batch.Queue(`UPDATE rewards SET sort_order = $2, updated_at = NOW() WHERE id = $1`, id, order)
		}
		results := tx.SendBatch(ctx, batch)
		for range orders {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return fmt.Errorf("failed to update reward order: %w", err)
			}
			if tag.RowsAffected() == 0 {
				results.Close()
				return ErrRewardNotFound
			}
		}
		return results.Close()
	})
}

func scanReward(row pgx.Row) (model.Reward, error) {
	var (
		reward model.Reward
		typ    string
		tiers  []string
	)
	err := row.Scan(
		&reward.ID,
		&reward.Label,
		&typ,
		&reward.Amount,
		&reward.Probability,
		&tiers,
		&reward.Active,
		&reward.Order,
		&reward.Icon,
		&reward.CreatedAt,
		&reward.UpdatedAt,
	)
	if err != nil {
		return model.Reward{}, err
	}
	reward.Type = model.RewardType(typ)
	reward.TierVisibility = stringsToTiers(tiers)
	return reward, nil
}

func tiersToStrings(set model.TierSet) []string {
	out := make([]string, len(set))
	for i, t := range set {
		out[i] = string(t)
	}
	return out
}

func stringsToTiers(values []string) model.TierSet {
	out := make(model.TierSet, len(values))
	for i, v := range values {
		out[i] = model.Tier(v)
	}
	return out
}
