package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"prize-pool/internal/model"
)

// Callback data prefixes
const (
	CallbackPoolToggle  = "pool_toggle:" // pool_toggle:42
	CallbackPoolRefresh = "pool_refresh"
)

// BuildPoolPanel creates one status toggle button per reward, two per row,
// followed by a refresh button.
func BuildPoolPanel(rewards []model.Reward) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	var currentRow []tele.Btn
	for i, r := range rewards {
		icon := "⏸"
		if r.Active {
			icon = "✅"
		}
		btn := markup.Data(
			fmt.Sprintf("%s %s", icon, r.Label),
			CallbackPoolToggle+strconv.FormatInt(r.ID, 10),
		)
		currentRow = append(currentRow, btn)

		if len(currentRow) == 2 || i == len(rewards)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}

	refreshBtn := markup.Data("🔄 Refresh", CallbackPoolRefresh)
	rows = append(rows, markup.Row(refreshBtn))

	markup.Inline(rows...)
	return markup
}

// ParseCallbackData strips the telebot prefix and splits off a reward id for
// toggle callbacks. id is 0 for refresh.
func ParseCallbackData(data string) (action string, id int64, err error) {
	data = strings.TrimPrefix(data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}

	switch {
	case data == CallbackPoolRefresh:
		return CallbackPoolRefresh, 0, nil
	case strings.HasPrefix(data, CallbackPoolToggle):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, CallbackPoolToggle), 10, 64)
		if err != nil || id <= 0 {
			return "", 0, fmt.Errorf("invalid reward id in callback %q", data)
		}
		return CallbackPoolToggle, id, nil
	}
	return "", 0, fmt.Errorf("unknown callback %q", data)
}
