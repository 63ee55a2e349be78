// Package main is the entry point for the prize pool API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"prize-pool/internal/bot"
	"prize-pool/internal/config"
	"prize-pool/internal/handler"
	"prize-pool/internal/metrics"
	"prize-pool/internal/pkg/db"
	"prize-pool/internal/pkg/lock"
	"prize-pool/internal/repository"
	"prize-pool/internal/service"
)

type stores struct {
	rewards  service.RewardStore
	settings service.SettingsStore
	spins    service.SpinStore
	health   func(ctx context.Context) error
	close    func()
}

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	log.Info().
		Str("driver", cfg.Database.Driver).
		Int("port", cfg.Server.Port).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	st, err := openStores(ctx, cfg, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer st.close()

	locks := lock.NewKeyLock()
	pool := service.NewPoolService(st.rewards, st.settings, locks,
		service.WithPoolMetrics(m),
		service.WithLockTimeout(cfg.Server.LockTimeout),
	)
	spins := service.NewSpinService(pool, st.rewards, st.spins, locks,
		service.WithSpinMetrics(m),
		service.WithLocation(cfg.Spin.Location()),
		service.WithHistoryLimit(cfg.Spin.HistoryLimit),
	)

	api := handler.NewAPIHandler(pool, spins, m)
	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.Router(handler.RouterConfig{
			RequestTimeout: cfg.Server.RequestTimeout,
			Health:         st.health,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Bot.Token != "" {
		adminBot, err := bot.New(&bot.Dependencies{Config: cfg, Pool: pool})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		g.Go(func() error {
			return adminBot.Run(gctx)
		})
	} else {
		log.Info().Msg("Bot token not set, admin bot disabled")
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped gracefully")
}

// openStores picks the storage backend named by the database driver.
func openStores(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return &stores{
			rewards:  repository.NewMemoryRewardRepository(),
			settings: repository.NewMemorySettingsRepository(),
			spins:    repository.NewMemorySpinRepository(),
			close:    func() {},
		}, nil
	}

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		dbPool.Close()
		return nil, err
	}
	if err := dbPool.RegisterMetrics(m.Registry()); err != nil {
		log.Warn().Err(err).Msg("Database pool metrics disabled")
	}

	return &stores{
		rewards:  repository.NewRewardRepository(dbPool.Pool),
		settings: repository.NewSettingsRepository(dbPool.Pool),
		spins:    repository.NewSpinRepository(dbPool.Pool),
		health:   dbPool.HealthCheck,
		close:    dbPool.Close,
	}, nil
}

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !strings.EqualFold(cfg.Format, "json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
