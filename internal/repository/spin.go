package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prize-pool/internal/model"
)

const spinColumns = `id, user_id, tier, reward_id, label, type, amount, roll, created_at`

// SpinRepository handles spin record persistence in PostgreSQL.
type SpinRepository struct {
	pool *pgxpool.Pool
}

// NewSpinRepository creates a new SpinRepository instance.
func NewSpinRepository(pool *pgxpool.Pool) *SpinRepository {
	return &SpinRepository{pool: pool}
}

// Create records a spin and returns it with its assigned id.
func (r *SpinRepository) Create(ctx context.Context, rec model.SpinRecord) (model.SpinRecord, error) {
	query := `
		INSERT INTO spins (user_id, tier, reward_id, label, type, amount, roll, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + spinColumns

	created, err := scanSpin(r.pool.QueryRow(ctx, query,
		rec.UserID,
		string(rec.Tier),
		rec.RewardID,
		rec.Label,
		string(rec.Type),
		rec.Amount,
		rec.Roll,
		rec.CreatedAt,
	))
	if err != nil {
		return model.SpinRecord{}, fmt.Errorf("failed to create spin: %w", err)
	}
	return created, nil
}

// LastByUserID returns the user's most recent spin, or nil if there is none.
func (r *SpinRepository) LastByUserID(ctx context.Context, userID int64) (*model.SpinRecord, error) {
	query := `SELECT ` + spinColumns + ` FROM spins WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`

	rec, err := scanSpin(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last spin: %w", err)
	}
	return &rec, nil
}

// CountSince counts the user's spins at or after since.
func (r *SpinRepository) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM spins WHERE user_id = $1 AND created_at >= $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count spins: %w", err)
	}
	return count, nil
}

// GetByUserID retrieves the user's spins, newest first.
func (r *SpinRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]model.SpinRecord, error) {
	query := `SELECT ` + spinColumns + ` FROM spins WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get spins: %w", err)
	}
	defer rows.Close()

	var records []model.SpinRecord
	for rows.Next() {
		rec, err := scanSpin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spin: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spins: %w", err)
	}

	return records, nil
}

// StatsSince aggregates wins and paid amounts per reward for spins at or
// after since, most wins first.
func (r *SpinRepository) StatsSince(ctx context.Context, since time.Time) ([]model.RewardStat, error) {
	const query = `
		SELECT reward_id, MAX(label) AS label, COUNT(*) AS total_wins, COALESCE(SUM(amount), 0) AS total_paid
		FROM spins
		WHERE reward_id IS NOT NULL AND created_at >= $1
		GROUP BY reward_id
		ORDER BY total_wins DESC, reward_id ASC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get spin stats: %w", err)
	}
	defer rows.Close()

	var stats []model.RewardStat
	for rows.Next() {
		var s model.RewardStat
		if err := rows.Scan(&s.RewardID, &s.Label, &s.TotalWins, &s.TotalPaid); err != nil {
			return nil, fmt.Errorf("failed to scan spin stat: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spin stats: %w", err)
	}

	return stats, nil
}

func scanSpin(row pgx.Row) (model.SpinRecord, error) {
	var (
		rec  model.SpinRecord
		tier string
		typ  string
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&tier,
		&rec.RewardID,
		&rec.Label,
		&typ,
		&rec.Amount,
		&rec.Roll,
		&rec.CreatedAt,
	)
	if err != nil {
		return model.SpinRecord{}, err
	}
	rec.Tier = model.Tier(tier)
	rec.Type = model.RewardType(typ)
	return rec, nil
}
