package bot

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/payment"
	"targethawk-bot/internal/signals"
)

func TestPlansText(t *testing.T) {
	month := 30
	plans := []payment.Plan{
		{Tier: models.TierPro, Title: "Pro (1 month)", Price: decimal.RequireFromString("990"), DurationDays: &month},
		{Tier: models.TierVIP, Title: "VIP (lifetime)", Price: decimal.RequireFromString("4990.5")},
	}

	text := plansText(plans, "RUB")

	assert.Contains(t, text, "🔸 Pro (1 month): 990.00 RUB")
	assert.Contains(t, text, "🏆 VIP (lifetime): 4990.50 RUB")
	assert.Contains(t, plansText(nil, "RUB"), "Free")
}

func TestStatusText(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	expiry := now.Add(36 * time.Hour)
	p := &ledger.Profile{
		User:        &models.User{UserID: 1, Tier: models.TierProTrial, TrialExpiry: &expiry},
		OpenSignals: 4,
	}

	assert.Equal(t, "📊 Plan: Pro Trial\n⏳ Expires in 2 day(s)\n📈 Open signals: 4", statusText(p, now))

	p.User.TrialExpiry = nil
	p.User.Tier = models.TierVIP
	assert.Equal(t, "📊 Plan: VIP\n📈 Open signals: 4", statusText(p, now))
}

func TestReferText(t *testing.T) {
	text := referText("TargetHawkBot", &models.User{UserID: 99, Referrals: 4, Tier: models.TierPro})

	assert.Contains(t, text, "https://t.me/TargetHawkBot?start=99")
	assert.Contains(t, text, "Referrals: 4")
	assert.Contains(t, text, "3/3 for Pro • 4/10 for VIP")
	assert.Contains(t, text, "Current plan: Pro")
}

func TestLeaderboardText(t *testing.T) {
	name := "alice"
	text := leaderboardText([]models.User{
		{UserID: 1, Username: &name, Referrals: 12},
		{UserID: 2, Referrals: 3},
	})

	assert.Equal(t, "🏆 Top Referrers\n1. @alice – 12 referrals\n2. ID 2 – 3 referrals", text)
	assert.Contains(t, leaderboardText(nil), "No referrals yet")
}

func TestStatsText(t *testing.T) {
	text := statsText(&models.Stats{
		TotalUsers:      5,
		UsersByTier:     map[models.Tier]int64{models.TierFree: 2, models.TierPro: 3},
		TotalReferrals:  7,
		SignalsByStatus: map[models.SignalStatus]int64{models.SignalOpen: 9},
		TopReferrers:    []models.User{{UserID: 8, Referrals: 7}},
	})

	assert.Contains(t, text, "👥 Total users: 5")
	assert.Contains(t, text, "  - Pro Trial: 0\n")
	assert.Contains(t, text, "  - Pro: 3\n")
	assert.Contains(t, text, "🔗 Total referrals: 7")
	assert.Contains(t, text, "  - Open: 9\n")
	assert.Contains(t, text, "  - Closed: 0\n")
	assert.Contains(t, text, "  - ID 8: 7 referrals")

	assert.Contains(t, statsText(&models.Stats{}), "No referrals yet")
}

func TestDeletionText(t *testing.T) {
	assert.Equal(t, "Select signals to delete, then confirm.", deletionText(nil))
	assert.Equal(t, "Selected for deletion: #3, #9\n\nSelect more or confirm.", deletionText([]uint{3, 9}))
	assert.Equal(t, "🗑️ BTC (#3)", deletionButtonText(signals.Summary{ID: 3, Symbol: "BTC"}))
	assert.Equal(t, "🆔 3 | 📈 BTC | Open", signalButtonText(signals.Summary{ID: 3, Symbol: "BTC", Status: models.SignalOpen}))
}

func TestFieldPrompt(t *testing.T) {
	assert.Contains(t, fieldPrompt("target_price_2"), "'-' to clear")
	assert.NotContains(t, fieldPrompt("stop_loss"), "'-'")
}

func TestAdminGrantText(t *testing.T) {
	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	req := ledger.GrantRequest{UserID: 42, Tier: models.TierPro}

	text := adminGrantText(req, &ledger.GrantResult{
		User:     &models.User{UserID: 42, Tier: models.TierPro, TrialExpiry: &expiry},
		Notified: true,
	})
	assert.Equal(t, "✅ User 42 is now on Pro. Expires 2026-06-01.", text)

	text = adminGrantText(req, &ledger.GrantResult{
		User:      &models.User{UserID: 42, Tier: models.TierPro},
		NotifyErr: errors.New("blocked"),
	})
	assert.Equal(t, "✅ User 42 is now on Pro.\n⚠️ The user could not be notified.", text)
}
