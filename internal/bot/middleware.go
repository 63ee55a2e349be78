package bot

import (
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"prize-pool/internal/config"
)

// Admit decides whether an update is processed at all. Every command is an
// admin command, so the sender must be an admin; group chats must also be
// whitelisted. Private chats with an admin are always admitted.
func Admit(cfg *config.Config, private bool, chatID, userID int64) bool {
	if !cfg.IsAdmin(userID) {
		return false
	}
	if private {
		return true
	}
	return cfg.IsChatAllowed(chatID)
}

// AccessMiddleware drops updates that Admit rejects. Non-admins get a reply
// in private chats and silence in groups.
func AccessMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			private := chat.Type == tele.ChatPrivate
			if Admit(cfg, private, chat.ID, sender.ID) {
				return next(c)
			}

			log.Warn().
				Int64("user_id", sender.ID).
				Int64("chat_id", chat.ID).
				Str("command", c.Text()).
				Msg("Rejected admin command")
			if private {
				return c.Reply("❌ Permission denied: admin only")
			}
			return nil
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ev := log.Debug()
			if sender := c.Sender(); sender != nil {
				ev = ev.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				ev = ev.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
			}
			ev.Str("text", c.Text()).Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}
