package bot

import (
	"fmt"
	"strings"
	"time"

	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/payment"
	"targethawk-bot/internal/signals"
)

const welcomeText = "👋 Welcome to TargetHawkBot, your partner for tracking crypto signals!\n\n" +
	"Key features:\n" +
	"📈 Track signals: entry, targets and stop-loss in one place.\n" +
	"🎁 Referrals: invite 3 friends for a month of Pro, 10 for VIP.\n\n" +
	"Start with /track or open /signals."

func plansText(plans []payment.Plan, currency string) string {
	var b strings.Builder
	b.WriteString("💰 Plans:\n🔹 Free: track signals, basic features")
	for _, p := range plans {
		icon := "🔸"
		if p.Tier == models.TierVIP {
			icon = "🏆"
		}
		fmt.Fprintf(&b, "\n%s %s: %s %s", icon, p.Title, p.Price.StringFixed(2), currency)
	}
	b.WriteString("\n\nUse /upgrade to get a payment link.")
	return b.String()
}

func statusText(p *ledger.Profile, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Plan: %s\n", p.User.Tier)
	if p.User.TrialExpiry != nil {
		fmt.Fprintf(&b, "⏳ Expires in %d day(s)\n", p.User.DaysLeft(now))
	}
	fmt.Fprintf(&b, "📈 Open signals: %d", p.OpenSignals)
	return b.String()
}

func referralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", botUsername, userID)
}

func referText(botUsername string, u *models.User) string {
	return fmt.Sprintf("🎁 Referral Program\n"+
		"Your link: %s\n"+
		"Referrals: %d\n"+
		"🎯 %d/%d for Pro • %d/%d for VIP\n"+
		"Invite %d → 1 month Pro\n"+
		"Invite %d → VIP Lifetime 💎\n"+
		"Current plan: %s",
		referralLink(botUsername, u.UserID),
		u.Referrals,
		min(u.Referrals, ledger.ReferralProThreshold), ledger.ReferralProThreshold,
		min(u.Referrals, ledger.ReferralVIPThreshold), ledger.ReferralVIPThreshold,
		ledger.ReferralProThreshold,
		ledger.ReferralVIPThreshold,
		u.Tier)
}

func leaderboardText(users []models.User) string {
	if len(users) == 0 {
		return "🏆 No referrals yet. Be the first with /refer!"
	}
	lines := []string{"🏆 Top Referrers"}
	for i, u := range users {
		lines = append(lines, fmt.Sprintf("%d. %s – %d referrals", i+1, u.DisplayName(), u.Referrals))
	}
	return strings.Join(lines, "\n")
}

func statsText(s *models.Stats) string {
	var b strings.Builder
	b.WriteString("📊 Bot Statistics:\n\n")
	fmt.Fprintf(&b, "👥 Total users: %d\n", s.TotalUsers)
	for _, t := range models.Tiers() {
		fmt.Fprintf(&b, "  - %s: %d\n", t, s.UsersByTier[t])
	}
	fmt.Fprintf(&b, "🔗 Total referrals: %d\n\n", s.TotalReferrals)

	b.WriteString("📈 Signals:\n")
	for _, st := range []models.SignalStatus{models.SignalOpen, models.SignalClosed, models.SignalCancelled} {
		fmt.Fprintf(&b, "  - %s: %d\n", st, s.SignalsByStatus[st])
	}

	if len(s.TopReferrers) == 0 {
		b.WriteString("\n🏆 No referrals yet")
		return b.String()
	}
	b.WriteString("\n🏆 Top referrers:")
	for _, u := range s.TopReferrers {
		fmt.Fprintf(&b, "\n  - %s: %d referrals", u.DisplayName(), u.Referrals)
	}
	return b.String()
}

func signalButtonText(s signals.Summary) string {
	return fmt.Sprintf("🆔 %d | 📈 %s | %s", s.ID, s.Symbol, s.Status)
}

func deletionButtonText(s signals.Summary) string {
	return fmt.Sprintf("🗑️ %s (#%d)", s.Symbol, s.ID)
}

func deletionText(selected []uint) string {
	if len(selected) == 0 {
		return "Select signals to delete, then confirm."
	}
	ids := make([]string, len(selected))
	for i, id := range selected {
		ids[i] = fmt.Sprintf("#%d", id)
	}
	return fmt.Sprintf("Selected for deletion: %s\n\nSelect more or confirm.", strings.Join(ids, ", "))
}

func fieldPrompt(field string) string {
	if field == "target_price_2" || field == "target_price_3" {
		return fmt.Sprintf("✍️ Send the new value for '%s', or '-' to clear it.", field)
	}
	return fmt.Sprintf("✍️ Send the new value for '%s'.", field)
}

func adminUpgradePrompt() string {
	return fmt.Sprintf("✍️ Send the user id, tier and optional duration in days, separated by spaces.\n\n"+
		"%s\nValid tiers: %s\nMax duration: %d days\n\nSend /cancel to abort.",
		upgradeUsage, tierList(), ledger.MaxDurationDays)
}

func adminGrantText(req ledger.GrantRequest, res *ledger.GrantResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ User %d is now on %s.", req.UserID, res.User.Tier)
	if res.User.TrialExpiry != nil {
		fmt.Fprintf(&b, " Expires %s.", res.User.TrialExpiry.Format("2006-01-02"))
	}
	if !res.Notified {
		b.WriteString("\n⚠️ The user could not be notified.")
	}
	return b.String()
}
