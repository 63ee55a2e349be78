package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "rewards table",
		sql: `
			CREATE TABLE IF NOT EXISTS rewards (
				id BIGSERIAL PRIMARY KEY,
				label VARCHAR(100) NOT NULL,
				type VARCHAR(20) NOT NULL,
				amount DOUBLE PRECISION NOT NULL,
				probability DOUBLE PRECISION NOT NULL,
				tier_visibility TEXT[] NOT NULL DEFAULT ARRAY['All Tiers'],
				active BOOLEAN NOT NULL DEFAULT TRUE,
				sort_order INT NOT NULL,
				icon TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_rewards_label_lower ON rewards(LOWER(label));
			CREATE INDEX IF NOT EXISTS idx_rewards_sort_order ON rewards(sort_order);
		`,
	},
	{
		name: "spin_settings table",
		sql: `
			CREATE TABLE IF NOT EXISTS spin_settings (
				id INT PRIMARY KEY,
				spin_mode VARCHAR(20) NOT NULL,
				cooldown_hours INT NOT NULL,
				max_spins_per_day INT NOT NULL,
				eligible_tiers TEXT[] NOT NULL,
				start_date TIMESTAMPTZ NULL,
				end_date TIMESTAMPTZ NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "spins table",
		sql: `
			CREATE TABLE IF NOT EXISTS spins (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL,
				tier VARCHAR(20) NOT NULL,
				reward_id BIGINT NULL,
				label VARCHAR(100) NOT NULL DEFAULT '',
				type VARCHAR(20) NOT NULL DEFAULT '',
				amount DOUBLE PRECISION NOT NULL DEFAULT 0,
				roll DOUBLE PRECISION NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_spins_user_time ON spins(user_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_spins_reward_time ON spins(reward_id, created_at DESC);
		`,
	},
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return err
		}
		log.Info().Int("step", i+1).Str("migration", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
