// Package identity manages the pool of scraping accounts used to
// authenticate against the external platform.
//
// Selection contract: an account is eligible when it is active, under its
// daily request cap, and outside the cooldown window since its last use.
// Premium accounts are preferred, then least-recently-used. The lease
// (selection + usage stamp) is a single atomic operation so two concurrent
// callers can never walk away with the same account.
package identity

import "time"

// Account mirrors a scraping_accounts row. Email and Password are stored
// encrypted; only Pool.Acquire hands out decrypted credentials.
type Account struct {
	ID            string
	Email         string
	Password      string
	IsPremium     bool
	IsActive      bool
	LastUsedAt    *time.Time
	RequestsToday int
	CreatedAt     time.Time
}

// Credentials is a decrypted credential pair, tagged with the account it
// came from so failures can be traced back for penalization.
type Credentials struct {
	AccountID string
	Email     string
	Password  string
}

// Limits are the pool-wide eligibility knobs.
type Limits struct {
	DailyCap int
	Cooldown time.Duration
}

// Stats summarizes pool capacity; upstream callers use it for admission
// control before submitting work.
type Stats struct {
	TotalActive int `json:"totalActive"`
	Available   int `json:"available"`
	RateLimited int `json:"rateLimited"`
	CoolingDown int `json:"coolingDown"`
}

// Eligible reports whether the account may be leased at instant now.
func (l Limits) Eligible(a Account, now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.RequestsToday >= l.DailyCap {
		return false
	}
	if a.LastUsedAt != nil && now.Sub(*a.LastUsedAt) <= l.Cooldown {
		return false
	}
	return true
}

// MoreEligible orders candidate accounts: premium before free, then
// least-recently-used (never-used counts as oldest).
func MoreEligible(a, b Account) bool {
	if a.IsPremium != b.IsPremium {
		return a.IsPremium
	}
	if a.LastUsedAt == nil {
		return true
	}
	if b.LastUsedAt == nil {
		return false
	}
	return a.LastUsedAt.Before(*b.LastUsedAt)
}
