package ledger

import (
	"fmt"
	"time"

	"targethawk-bot/internal/models"
)

const day = 24 * time.Hour

// ExtendExpiry stacks days onto any still running period, trial included.
// A lapsed or absent expiry restarts the count at now.
func ExtendExpiry(now time.Time, current *models.User, days int) time.Time {
	base := now
	if current != nil && current.TrialExpiry != nil && current.TrialExpiry.After(now) {
		base = *current.TrialExpiry
	}
	return base.Add(time.Duration(days) * day)
}

// referralBonus returns the grant owed to a referrer whose counter just
// reached count. Thresholds match exactly once.
func referralBonus(referrerID int64, count int, current models.Tier) (GrantRequest, string, bool) {
	switch {
	case count == ReferralProThreshold && models.TierPro.Outranks(current):
		days := ReferralProDays
		return GrantRequest{
			UserID:       referrerID,
			Tier:         models.TierPro,
			Source:       SourceReferralBonus,
			DurationDays: &days,
		}, "🎁 Congrats! You've been upgraded to Pro for 1 month!", true
	case count == ReferralVIPThreshold && models.TierVIP.Outranks(current):
		return GrantRequest{
			UserID: referrerID,
			Tier:   models.TierVIP,
			Source: SourceReferralBonus,
			Expiry: ClearExpiry,
		}, fmt.Sprintf("🏆 Amazing! You're now a VIP after %d referrals!", ReferralVIPThreshold), true
	}
	return GrantRequest{}, "", false
}
