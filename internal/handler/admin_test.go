package handler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"prize-pool/internal/model"
	"prize-pool/internal/prizepool"
	"prize-pool/internal/service"
)

func TestParseToggleArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		id      int64
		active  bool
		wantErr bool
	}{
		{"on", []string{"3", "on"}, 3, true, false},
		{"off", []string{"3", "OFF"}, 3, false, false},
		{"missing status", []string{"3"}, 0, false, true},
		{"bad id", []string{"x", "on"}, 0, false, true},
		{"negative id", []string{"-1", "on"}, 0, false, true},
		{"bad status", []string{"3", "maybe"}, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, active, err := ParseToggleArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.active, active)
		})
	}
}

func TestParseProbabilityArgs(t *testing.T) {
	id, p, err := ParseProbabilityArgs([]string{"7", "12.5%"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 12.5, p)

	_, _, err = ParseProbabilityArgs([]string{"7", "lots"})
	assert.Error(t, err)

	for _, v := range []string{"NaN", "nan%", "Inf", "-Inf", "+Inf"} {
		_, _, err = ParseProbabilityArgs([]string{"7", v})
		assert.Error(t, err, v)
	}
}

// TestParseMoveArgsProperty checks that 1-based positions map to 0-based
// indices for every pair of integers.
func TestParseMoveArgsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		from := rapid.IntRange(-100, 100).Draw(rt, "from")
		to := rapid.IntRange(-100, 100).Draw(rt, "to")

		gotFrom, gotTo, err := ParseMoveArgs([]string{itoa(from), itoa(to)})
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if gotFrom != from-1 || gotTo != to-1 {
			rt.Fatalf("got (%d,%d), want (%d,%d)", gotFrom, gotTo, from-1, to-1)
		}
	})
}

func TestFormatPool(t *testing.T) {
	rewards := []model.Reward{
		{ID: 4, Label: "Gold Coins", Type: model.RewardCoins, Amount: 500, Probability: 25, TierVisibility: model.TierSet{model.TierGold}, Active: true},
		{ID: 9, Label: "Bonus XP", Type: model.RewardXP, Amount: 10, Probability: 40, TierVisibility: model.TierSet{model.TierAll}},
	}
	out := FormatPool(rewards, prizepool.Summarize(rewards))

	assert.Contains(t, out, "1. [4] Gold Coins · Coins 500 · 25.00% · Gold · active")
	assert.Contains(t, out, "2. [9] Bonus XP · XP 10 · 40.00% · All Tiers · inactive")
	assert.Contains(t, out, "Active: 25.00% · Remaining: 75.00% · 1 active / 1 inactive")

	assert.Contains(t, FormatPool(nil, prizepool.BudgetSummary{Remaining: 100}), "No rewards")
}

func TestFormatSettings(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := model.DefaultSpinSettings()
	s.StartDate = &start

	out := FormatSettings(s)
	assert.Contains(t, out, "Mode: free")
	assert.Contains(t, out, "Cooldown: 24h")
	assert.Contains(t, out, "Window: 2026-05-01 09:00 → open")
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "❌ reward 3 not found", FormatError(prizepool.NotFoundError(3)))
	assert.Equal(t, "❌ daily spin limit reached", FormatError(service.ErrDailyLimit))
	assert.Equal(t, "❌ Internal error, please try again later", FormatError(errors.New("connection reset")))
}

func TestBuildPoolPanel(t *testing.T) {
	rewards := []model.Reward{
		{ID: 1, Label: "Gold Coins", Active: true},
		{ID: 2, Label: "Bonus XP"},
		{ID: 7, Label: "Coupon"},
	}
	markup := BuildPoolPanel(rewards)

	require.Len(t, markup.InlineKeyboard, 3)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Len(t, markup.InlineKeyboard[1], 1)
	assert.Equal(t, "✅ Gold Coins", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "⏸ Bonus XP", markup.InlineKeyboard[0][1].Text)

	action, id, err := ParseCallbackData(markup.InlineKeyboard[1][0].Unique)
	require.NoError(t, err)
	assert.Equal(t, CallbackPoolToggle, action)
	assert.Equal(t, int64(7), id)

	action, _, err = ParseCallbackData(markup.InlineKeyboard[2][0].Unique)
	require.NoError(t, err)
	assert.Equal(t, CallbackPoolRefresh, action)
}

func TestParseCallbackData(t *testing.T) {
	_, _, err := ParseCallbackData("\fpool_toggle:abc")
	assert.Error(t, err)
	_, _, err = ParseCallbackData("shop_buy:key")
	assert.Error(t, err)

	action, id, err := ParseCallbackData("\fpool_toggle:12|extra")
	require.NoError(t, err)
	assert.Equal(t, CallbackPoolToggle, action)
	assert.Equal(t, int64(12), id)
}
