package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"prize-pool/internal/metrics"
	"prize-pool/internal/model"
	"prize-pool/internal/pkg/lock"
	"prize-pool/internal/prizepool"
)

// Spin rejections.
var (
	ErrSpinClosed      = errors.New("spin wheel is not open")
	ErrTierNotEligible = errors.New("tier is not eligible to spin")
	ErrAdRequired      = errors.New("an ad must be watched before spinning")
	ErrSpinCooldown    = errors.New("spin is on cooldown")
	ErrDailyLimit      = errors.New("daily spin limit reached")
)

// CooldownError carries the time left before the user may spin again.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %s remaining", ErrSpinCooldown, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrSpinCooldown }

// SpinRequest identifies who is spinning.
type SpinRequest struct {
	UserID    int64      `json:"userId"`
	Tier      model.Tier `json:"tier"`
	AdWatched bool       `json:"adWatched"`
}

// SpinService draws from the live pool and enforces the spin settings.
type SpinService struct {
	pool         *PoolService
	rewards      RewardStore
	spins        SpinStore
	locks        *lock.KeyLock
	loc          *time.Location
	historyLimit int
	metrics      *metrics.Metrics
	now          func() time.Time
	roll         func() float64
}

// SpinOption configures a SpinService.
type SpinOption func(*SpinService)

// WithSpinClock overrides the time source.
func WithSpinClock(now func() time.Time) SpinOption {
	return func(s *SpinService) { s.now = now }
}

// WithRoll overrides the random source. fn must return values in [0, 100).
func WithRoll(fn func() float64) SpinOption {
	return func(s *SpinService) { s.roll = fn }
}

// WithSpinMetrics attaches Prometheus collectors.
func WithSpinMetrics(m *metrics.Metrics) SpinOption {
	return func(s *SpinService) { s.metrics = m }
}

// WithLocation sets the timezone in which daily limits reset.
func WithLocation(loc *time.Location) SpinOption {
	return func(s *SpinService) { s.loc = loc }
}

// WithHistoryLimit sets the default page size for History.
func WithHistoryLimit(n int) SpinOption {
	return func(s *SpinService) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// NewSpinService creates a new SpinService instance. Settings are read
// through pool so unsaved settings resolve to the defaults.
func NewSpinService(pool *PoolService, rewards RewardStore, spins SpinStore, locks *lock.KeyLock, opts ...SpinOption) *SpinService {
	s := &SpinService{
		pool:         pool,
		rewards:      rewards,
		spins:        spins,
		locks:        locks,
		loc:          time.UTC,
		historyLimit: 20,
		now:          time.Now,
		roll:         func() float64 { return rand.Float64() * prizepool.Budget },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spin checks the user against the settings, draws a reward and records the
// outcome. A spin that lands on unallocated budget is recorded without a
// reward.
func (s *SpinService) Spin(ctx context.Context, req SpinRequest) (model.SpinRecord, error) {
	if req.Tier == model.TierAll || !req.Tier.Valid() {
		return model.SpinRecord{}, &prizepool.Error{
			Kind:    prizepool.KindValidation,
			Field:   "tier",
			Message: fmt.Sprintf("unknown tier %q", req.Tier),
		}
	}

	var rec model.SpinRecord
	key := fmt.Sprintf("spin:%d", req.UserID)
	lockCtx, cancel := context.WithTimeout(ctx, s.pool.lockTimeout)
	defer cancel()
	if err := s.locks.Lock(lockCtx, key); err != nil {
		return model.SpinRecord{}, fmt.Errorf("failed to acquire spin lock: %w", err)
	}
	defer s.locks.Unlock(key)

	now := s.now()
	settings, err := s.pool.GetSettings(ctx)
	if err != nil {
		return model.SpinRecord{}, err
	}
	if err := s.checkEligibility(ctx, req, settings, now); err != nil {
		s.metrics.Spin(rejectionLabel(err))
		log.Debug().Err(err).Int64("user_id", req.UserID).Msg("Spin rejected")
		return model.SpinRecord{}, err
	}

	rewards, err := s.rewards.List(ctx)
	if err != nil {
		return model.SpinRecord{}, fmt.Errorf("failed to list rewards: %w", err)
	}

	roll := s.roll()
	rec = model.SpinRecord{
		UserID:    req.UserID,
		Tier:      req.Tier,
		Roll:      roll,
		CreatedAt: now,
	}
	if won, ok := prizepool.Draw(rewards, req.Tier, roll); ok {
		id := won.ID
		rec.RewardID = &id
		rec.Label = won.Label
		rec.Type = won.Type
		rec.Amount = won.Amount
	}

	rec, err = s.spins.Create(ctx, rec)
	if err != nil {
		return model.SpinRecord{}, fmt.Errorf("failed to record spin: %w", err)
	}

	if rec.Won() {
		s.metrics.Spin("win")
	} else {
		s.metrics.Spin("no_prize")
	}
	log.Info().
		Int64("user_id", rec.UserID).
		Str("tier", string(rec.Tier)).
		Float64("roll", rec.Roll).
		Str("label", rec.Label).
		Msg("Spin recorded")
	return rec, nil
}

func (s *SpinService) checkEligibility(ctx context.Context, req SpinRequest, settings model.SpinSettings, now time.Time) error {
	if !prizepool.WithinWindow(settings, now) {
		return ErrSpinClosed
	}
	if !prizepool.TierIncludes(settings.EligibleTiers, req.Tier) {
		return ErrTierNotEligible
	}
	if settings.SpinMode == model.SpinModeAdBased && !req.AdWatched {
		return ErrAdRequired
	}

	last, err := s.spins.LastByUserID(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("failed to get last spin: %w", err)
	}
	if last != nil {
		cooldown := time.Duration(settings.CooldownPeriod) * time.Hour
		if elapsed := now.Sub(last.CreatedAt); elapsed < cooldown {
			return &CooldownError{Remaining: cooldown - elapsed}
		}
	}

	count, err := s.spins.CountSince(ctx, req.UserID, s.startOfDay(now))
	if err != nil {
		return fmt.Errorf("failed to count spins: %w", err)
	}
	if count >= settings.MaxSpinsPerDay {
		return ErrDailyLimit
	}
	return nil
}

func (s *SpinService) startOfDay(t time.Time) time.Time {
	local := t.In(s.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, ErrSpinClosed):
		return "closed"
	case errors.Is(err, ErrTierNotEligible):
		return "tier_not_eligible"
	case errors.Is(err, ErrAdRequired):
		return "ad_required"
	case errors.Is(err, ErrSpinCooldown):
		return "cooldown"
	case errors.Is(err, ErrDailyLimit):
		return "daily_limit"
	default:
		return "error"
	}
}

// History returns the user's most recent spins. A non-positive limit uses
// the configured default.
func (s *SpinService) History(ctx context.Context, userID int64, limit int) ([]model.SpinRecord, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	records, err := s.spins.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get spin history: %w", err)
	}
	return records, nil
}

// Stats returns wins and total paid per reward since the given time.
func (s *SpinService) Stats(ctx context.Context, since time.Time) ([]model.RewardStat, error) {
	stats, err := s.spins.StatsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get spin stats: %w", err)
	}
	return stats, nil
}
