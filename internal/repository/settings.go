package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prize-pool/internal/model"
)

// settingsRowID is the single row holding the wheel settings.
const settingsRowID = 1

// SettingsRepository handles spin settings persistence in PostgreSQL.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository instance.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the stored settings.
// Returns ErrSettingsNotFound if nothing has been saved yet.
func (r *SettingsRepository) Get(ctx context.Context) (model.SpinSettings, error) {
	const query = `
		SELECT spin_mode, cooldown_hours, max_spins_per_day, eligible_tiers, start_date, end_date, updated_at
		FROM spin_settings
		WHERE id = $1
	`

	var (
		s     model.SpinSettings
		mode  string
		tiers []string
	)
	err := r.pool.QueryRow(ctx, query, settingsRowID).Scan(
		&mode,
		&s.CooldownPeriod,
		&s.MaxSpinsPerDay,
		&tiers,
		&s.StartDate,
		&s.EndDate,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SpinSettings{}, ErrSettingsNotFound
		}
		return model.SpinSettings{}, fmt.Errorf("failed to get spin settings: %w", err)
	}
	s.SpinMode = model.SpinMode(mode)
	s.EligibleTiers = stringsToTiers(tiers)
	return s, nil
}

// Save upserts the settings row.
func (r *SettingsRepository) Save(ctx context.Context, s model.SpinSettings) error {
	const query = `
		INSERT INTO spin_settings (id, spin_mode, cooldown_hours, max_spins_per_day, eligible_tiers, start_date, end_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET spin_mode = $2, cooldown_hours = $3, max_spins_per_day = $4,
		              eligible_tiers = $5, start_date = $6, end_date = $7, updated_at = $8
	`
	_, err := r.pool.Exec(ctx, query,
		settingsRowID,
		string(s.SpinMode),
		s.CooldownPeriod,
		s.MaxSpinsPerDay,
		tiersToStrings(s.EligibleTiers),
		s.StartDate,
		s.EndDate,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save spin settings: %w", err)
	}
	return nil
}
