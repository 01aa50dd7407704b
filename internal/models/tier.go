package models

import "strings"

type Tier string

const (
	TierFree     Tier = "Free"
	TierProTrial Tier = "Pro Trial"
	TierPro      Tier = "Pro"
	TierVIP      Tier = "VIP"
)

var tierRank = map[Tier]int{
	TierFree:     0,
	TierProTrial: 0,
	TierPro:      1,
	TierVIP:      2,
}

// Tiers lists every tier in display order.
func Tiers() []Tier {
	return []Tier{TierFree, TierProTrial, TierPro, TierVIP}
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Rank orders tiers for upgrade checks. Free and Pro Trial share the lowest rank.
func (t Tier) Rank() int {
	return tierRank[t]
}

// Outranks reports whether t sits strictly above other.
func (t Tier) Outranks(other Tier) bool {
	return t.Rank() > other.Rank()
}

// ParseTier matches a tier name case-insensitively.
func ParseTier(s string) (Tier, bool) {
	s = strings.Join(strings.Fields(s), " ")
	for _, t := range Tiers() {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}
