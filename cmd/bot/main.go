// Package main runs the Telegram admin bot against a remote prize pool API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"prize-pool/internal/bot"
	"prize-pool/internal/client"
	"prize-pool/internal/config"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil && cfg.Log.Level != "" {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().Str("api", cfg.Client.BaseURL).Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Client)

	// Fail fast when the API is unreachable.
	startCtx, cancel := context.WithTimeout(ctx, cfg.Client.RequestTimeout())
	summary, err := api.Budget(startCtx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Prize pool API is not reachable")
	}
	log.Info().
		Float64("active_total", summary.ActiveTotal).
		Int("active", summary.ActiveCount).
		Msg("Connected to prize pool API")

	adminBot, err := bot.New(&bot.Dependencies{Config: cfg, Pool: api})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	if err := adminBot.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Bot stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Bot stopped gracefully")
}
