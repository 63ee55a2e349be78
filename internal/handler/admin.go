package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"prize-pool/internal/model"
	"prize-pool/internal/prizepool"
	"prize-pool/internal/service"
)

// PoolAdmin is what the admin bot needs from the pool. Both
// service.PoolService and client.Client satisfy it.
type PoolAdmin interface {
	service.PoolAPI
	SetActive(ctx context.Context, id int64, active bool) (model.Reward, error)
	Budget(ctx context.Context) (prizepool.BudgetSummary, error)
}

// AdminHandler handles the Telegram admin commands.
type AdminHandler struct {
	pool    PoolAdmin
	timeout time.Duration
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(pool PoolAdmin, timeout time.Duration) *AdminHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AdminHandler{pool: pool, timeout: timeout}
}

func (h *AdminHandler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

func logAdmin(c tele.Context, operation string) *zerolog.Event {
	ev := log.Info().Str("operation", operation)
	if sender := c.Sender(); sender != nil {
		ev = ev.Int64("admin_id", sender.ID)
	}
	return ev
}

// HandlePool handles /pool [search].
func (h *AdminHandler) HandlePool(c tele.Context) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	f := prizepool.Filter{Search: strings.Join(c.Args(), " ")}
	rewards, err := h.pool.ListRewards(ctx, f)
	if err != nil {
		return c.Reply(FormatError(err))
	}
	summary, err := h.pool.Budget(ctx)
	if err != nil {
		return c.Reply(FormatError(err))
	}
	return c.Reply(FormatPool(rewards, summary), BuildPoolPanel(rewards))
}

// HandleCallback handles the pool panel buttons. A toggle flips the reward's
// status and redraws the panel. Rejections are shown as an alert.
func (h *AdminHandler) HandleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	action, id, err := ParseCallbackData(callback.Data)
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring callback")
		return c.Respond()
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	if action == CallbackPoolToggle {
		current, err := h.findReward(ctx, id)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: FormatError(err), ShowAlert: true})
		}
		if _, err := h.pool.SetActive(ctx, id, !current.Active); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: FormatError(err), ShowAlert: true})
		}
		logAdmin(c, "toggle").Int64("reward_id", id).Bool("active", !current.Active).Msg("Admin operation executed")
	}

	rewards, err := h.pool.ListRewards(ctx, prizepool.Filter{})
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: FormatError(err), ShowAlert: true})
	}
	summary, err := h.pool.Budget(ctx)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: FormatError(err), ShowAlert: true})
	}
	_ = c.Respond()
	return c.Edit(FormatPool(rewards, summary), BuildPoolPanel(rewards))
}

func (h *AdminHandler) findReward(ctx context.Context, id int64) (model.Reward, error) {
	rewards, err := h.pool.ListRewards(ctx, prizepool.Filter{})
	if err != nil {
		return model.Reward{}, err
	}
	for _, r := range rewards {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Reward{}, prizepool.NotFoundError(id)
}

// HandleBudget handles /budget.
func (h *AdminHandler) HandleBudget(c tele.Context) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	summary, err := h.pool.Budget(ctx)
	if err != nil {
		return c.Reply(FormatError(err))
	}
	return c.Reply(FormatBudget(summary))
}

// HandleToggle handles /toggle <id> on|off.
func (h *AdminHandler) HandleToggle(c tele.Context) error {
	id, active, err := ParseToggleArgs(c.Args())
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	reward, err := h.pool.SetActive(ctx, id, active)
	if err != nil {
		return c.Reply(FormatError(err))
	}

	logAdmin(c, "toggle").Int64("reward_id", id).Bool("active", active).Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("✅ %s is now %s", reward.Label, statusLabel(reward.Active)))
}

// HandleProbability handles /prob <id> <percent>.
func (h *AdminHandler) HandleProbability(c tele.Context) error {
	id, probability, err := ParseProbabilityArgs(c.Args())
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	reward, err := h.pool.UpdateReward(ctx, id, model.RewardPatch{Probability: &probability})
	if err != nil {
		return c.Reply(FormatError(err))
	}

	logAdmin(c, "probability").Int64("reward_id", id).Float64("probability", probability).Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("✅ %s probability set to %.2f%%", reward.Label, reward.Probability))
}

// HandleMove handles /move <from> <to> with 1-based positions in the full list.
func (h *AdminHandler) HandleMove(c tele.Context) error {
	from, to, err := ParseMoveArgs(c.Args())
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	rewards, err := h.pool.ReorderRewards(ctx, prizepool.Filter{}, from, to)
	if err != nil {
		return c.Reply(FormatError(err))
	}

	logAdmin(c, "move").Int("from", from).Int("to", to).Msg("Admin operation executed")
	summary, err := h.pool.Budget(ctx)
	if err != nil {
		return c.Reply(FormatError(err))
	}
	return c.Reply(FormatPool(rewards, summary), BuildPoolPanel(rewards))
}

// HandleSettings handles /settings.
func (h *AdminHandler) HandleSettings(c tele.Context) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	settings, err := h.pool.GetSettings(ctx)
	if err != nil {
		return c.Reply(FormatError(err))
	}
	return c.Reply(FormatSettings(settings))
}

// HandleSpinMode handles /spinmode free|ad-based.
func (h *AdminHandler) HandleSpinMode(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Reply("❌ Usage: /spinmode free|ad-based")
	}
	mode := model.SpinMode(strings.ToLower(args[0]))

	ctx, cancel := h.requestContext()
	defer cancel()

	settings, err := h.pool.UpdateSettings(ctx, model.SpinSettingsPatch{SpinMode: &mode})
	if err != nil {
		return c.Reply(FormatError(err))
	}

	logAdmin(c, "spin_mode").Str("spin_mode", string(mode)).Msg("Admin operation executed")
	return c.Reply(FormatSettings(settings))
}

// ParseToggleArgs parses "<id> on|off".
func ParseToggleArgs(args []string) (int64, bool, error) {
	if len(args) != 2 {
		return 0, false, errors.New("Usage: /toggle <id> on|off")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false, errors.New("invalid reward id")
	}
	switch strings.ToLower(args[1]) {
	case "on", "active", "1", "true":
		return id, true, nil
	case "off", "inactive", "0", "false":
		return id, false, nil
	}
	return 0, false, errors.New("status must be on or off")
}

// ParseProbabilityArgs parses "<id> <percent>"; a trailing % is accepted.
func ParseProbabilityArgs(args []string) (int64, float64, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("Usage: /prob <id> <percent>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, errors.New("invalid reward id")
	}
	p, err := strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, 0, errors.New("invalid probability")
	}
	return id, p, nil
}

// ParseMoveArgs parses 1-based "<from> <to>" into 0-based indices.
func ParseMoveArgs(args []string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("Usage: /move <from> <to>")
	}
	from, err1 := strconv.Atoi(args[0])
	to, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return 0, 0, errors.New("positions must be numbers")
	}
	return from - 1, to - 1, nil
}

// FormatError renders an error for chat.
func FormatError(err error) string {
	var perr *prizepool.Error
	if errors.As(err, &perr) {
		return "❌ " + perr.Error()
	}
	_, body := classify(err)
	if body.Kind == KindInternal {
		return "❌ Internal error, please try again later"
	}
	return "❌ " + err.Error()
}

// FormatPool renders the pool with the budget footer.
func FormatPool(rewards []model.Reward, summary prizepool.BudgetSummary) string {
	var sb strings.Builder
	sb.WriteString("🎡 Prize pool\n\n")
	if len(rewards) == 0 {
		sb.WriteString("No rewards\n")
	}
	for i, r := range rewards {
		fmt.Fprintf(&sb, "%d. [%d] %s · %s %g · %.2f%% · %s · %s\n",
			i+1, r.ID, r.Label, r.Type, r.Amount, r.Probability,
			tierLabel(r.TierVisibility), statusLabel(r.Active))
	}
	sb.WriteString("\n")
	sb.WriteString(FormatBudget(summary))
	return sb.String()
}

// FormatBudget renders the budget summary.
func FormatBudget(s prizepool.BudgetSummary) string {
	return fmt.Sprintf("📊 Active: %.2f%% · Remaining: %.2f%% · %d active / %d inactive",
		s.ActiveTotal, s.Remaining, s.ActiveCount, s.InactiveCount)
}

// FormatSettings renders the spin settings.
func FormatSettings(s model.SpinSettings) string {
	var sb strings.Builder
	sb.WriteString("⚙️ Spin settings\n\n")
	fmt.Fprintf(&sb, "Mode: %s\n", s.SpinMode)
	fmt.Fprintf(&sb, "Cooldown: %dh\n", s.CooldownPeriod)
	fmt.Fprintf(&sb, "Max spins per day: %d\n", s.MaxSpinsPerDay)
	fmt.Fprintf(&sb, "Eligible tiers: %s\n", tierLabel(s.EligibleTiers))
	fmt.Fprintf(&sb, "Window: %s → %s", dateLabel(s.StartDate), dateLabel(s.EndDate))
	return sb.String()
}

func statusLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func tierLabel(set model.TierSet) string {
	if len(set) == 0 {
		return string(model.TierAll)
	}
	parts := make([]string, len(set))
	for i, t := range set {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func dateLabel(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.UTC().Format("2006-01-02 15:04")
}
