package bot

import (
	"testing"

	"pgregory.net/rapid"

	"prize-pool/internal/config"
)

func drawIDs(t *rapid.T, label string, negative bool) []int64 {
	n := rapid.IntRange(0, 8).Draw(t, label+"Count")
	ids := make([]int64, n)
	for i := range ids {
		id := rapid.Int64Range(1, 1_000_000_000).Draw(t, label)
		if negative {
			id = -id
		}
		ids[i] = id
	}
	return ids
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// TestAdmitProperty checks Admit against its definition: admins only, and
// group chats must be whitelisted unless the whitelist is empty.
func TestAdmitProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		admins := drawIDs(t, "admin", false)
		chats := drawIDs(t, "chat", true)
		cfg := &config.Config{
			Admin:     config.AdminConfig{IDs: admins},
			Whitelist: config.WhitelistConfig{Chats: chats},
		}

		var userID int64
		if len(admins) > 0 && rapid.Bool().Draw(t, "knownAdmin") {
			userID = rapid.SampledFrom(admins).Draw(t, "userID")
		} else {
			userID = rapid.Int64Range(1, 1_000_000_000).Draw(t, "userID")
		}

		private := rapid.Bool().Draw(t, "private")
		var chatID int64
		if private {
			chatID = userID
		} else if len(chats) > 0 && rapid.Bool().Draw(t, "knownChat") {
			chatID = rapid.SampledFrom(chats).Draw(t, "chatID")
		} else {
			chatID = -rapid.Int64Range(1, 1_000_000_000).Draw(t, "chatID")
		}

		want := contains(admins, userID) &&
			(private || len(chats) == 0 || contains(chats, chatID))

		if got := Admit(cfg, private, chatID, userID); got != want {
			t.Fatalf("Admit(private=%v, chat=%d, user=%d) = %v, want %v (admins=%v chats=%v)",
				private, chatID, userID, got, want, admins, chats)
		}
	})
}

// TestAdmitNeverAdmitsNonAdminsProperty checks that no chat setting lets a
// non-admin through.
func TestAdmitNeverAdmitsNonAdminsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: drawIDs(t, "chat", true)}}
		userID := rapid.Int64Range(1, 1_000_000_000).Draw(t, "userID")
		chatID := rapid.Int64().Draw(t, "chatID")

		if Admit(cfg, rapid.Bool().Draw(t, "private"), chatID, userID) {
			t.Fatalf("user %d admitted with no admins configured", userID)
		}
	})
}
