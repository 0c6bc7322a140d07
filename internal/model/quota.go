package model

import "time"

// DateLayout keys usage counters by calendar day; it sorts chronologically as a string.
const DateLayout = "2006-01-02"

// UsageRetentionDays is how many distinct dates a key keeps in its usage history.
const UsageRetentionDays = 7

// QuotaRecord is the quota state held for one registered API key.
type QuotaRecord struct {
	Key        string
	Tier       Tier
	DailyLimit Limit
	Usage      map[string]int // date -> request count
	CreatedAt  time.Time
}

// UsedOn returns the count recorded for date (0 if absent).
func (r *QuotaRecord) UsedOn(date string) int {
	if r == nil || r.Usage == nil {
		return 0
	}
	return r.Usage[date]
}

// UsageSnapshot is a point-in-time view of a key's allowance.
type UsageSnapshot struct {
	Tier           Tier  `json:"tier"`
	RemainingToday Limit `json:"remainingToday"`
	DailyLimit     Limit `json:"dailyLimit"`
	UsedToday      int   `json:"usedToday"`
}
