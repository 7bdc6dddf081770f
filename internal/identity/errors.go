package identity

import (
	"errors"
	"fmt"
)

// ErrNoAccountAvailable is the umbrella for every "pool exhausted" outcome.
// The wrapped variants tell the caller why, so task status can report a
// precise cause.
var ErrNoAccountAvailable = errors.New("no scraping account available")

var (
	// ErrNoneConfigured: the pool has no active accounts at all.
	ErrNoneConfigured = fmt.Errorf("%w: no active accounts configured", ErrNoAccountAvailable)

	// ErrAllRateLimited: every active account has hit its daily cap.
	ErrAllRateLimited = fmt.Errorf("%w: all accounts at daily request cap", ErrNoAccountAvailable)

	// ErrAllCoolingDown: every active account is inside its cooldown window.
	ErrAllCoolingDown = fmt.Errorf("%w: all accounts cooling down", ErrNoAccountAvailable)
)
