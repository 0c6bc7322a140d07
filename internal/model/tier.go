package model

import "strings"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// FreeDailyLimit is the number of research requests a free key gets per calendar day.
const FreeDailyLimit = 3

func (t Tier) String() string { return string(t) }

// ParseTier normalizes input; empty => free.
// Returns (value, true) if valid; otherwise (free, false).
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "free":
		return TierFree, true
	case "pro":
		return TierPro, true
	default:
		return TierFree, false
	}
}

func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// DailyLimit returns the tier's per-day allowance.
func (t Tier) DailyLimit() Limit {
	if t == TierPro {
		return Unlimited()
	}
	return LimitOf(FreeDailyLimit)
}
