package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"targethawk-bot/internal/models"
)

// Plan is a purchasable tier.
type Plan struct {
	Tier         models.Tier
	Title        string
	Price        decimal.Decimal
	DurationDays *int
}

func (p Plan) Description() string {
	if p.DurationDays != nil {
		return fmt.Sprintf("TargetHawk %s, %d days", p.Tier, *p.DurationDays)
	}
	return fmt.Sprintf("TargetHawk %s, lifetime", p.Tier)
}

// Plans builds the catalogue: Pro is monthly, VIP is a one-time purchase.
func Plans(proPrice, vipPrice string) ([]Plan, error) {
	pro, err := decimal.NewFromString(proPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid PRO_PRICE %q: %w", proPrice, err)
	}
	vip, err := decimal.NewFromString(vipPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid VIP_PRICE %q: %w", vipPrice, err)
	}
	if !pro.IsPositive() || !vip.IsPositive() {
		return nil, fmt.Errorf("plan prices must be positive")
	}

	month := 30
	return []Plan{
		{Tier: models.TierPro, Title: "Pro (1 month)", Price: pro, DurationDays: &month},
		{Tier: models.TierVIP, Title: "VIP (lifetime)", Price: vip},
	}, nil
}
