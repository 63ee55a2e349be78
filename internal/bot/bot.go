// Package bot runs the Telegram admin bot for the prize pool.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"prize-pool/internal/config"
	"prize-pool/internal/handler"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot   *tele.Bot
	cfg   *config.Config
	admin *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config *config.Config
	Pool   handler.PoolAdmin
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Bot handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:   teleBot,
		cfg:   deps.Config,
		admin: handler.NewAdminHandler(deps.Pool, deps.Config.Server.RequestTimeout),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(AccessMiddleware(b.cfg))
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleHelp)
	b.bot.Handle("/help", b.handleHelp)
	b.bot.Handle("/pool", b.admin.HandlePool)
	b.bot.Handle("/budget", b.admin.HandleBudget)
	b.bot.Handle("/toggle", b.admin.HandleToggle)
	b.bot.Handle("/prob", b.admin.HandleProbability)
	b.bot.Handle("/move", b.admin.HandleMove)
	b.bot.Handle("/settings", b.admin.HandleSettings)
	b.bot.Handle("/spinmode", b.admin.HandleSpinMode)

	// Pool panel buttons
	b.bot.Handle(tele.OnCallback, b.admin.HandleCallback)
}

const helpText = `🎡 Prize pool admin

/pool [search] - list rewards
/budget - probability budget
/toggle <id> on|off - activate or deactivate a reward
/prob <id> <percent> - set a reward's probability
/move <from> <to> - move a reward (1-based positions)
/settings - show spin settings
/spinmode free|ad-based - change spin mode`

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

// Run polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	log.Info().Msg("Starting bot...")
	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	b.bot.Start()
	return nil
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
