// Package scraper acquires job listings from the external platform using
// two interchangeable automation engines with automatic fallback.
//
// Each engine implements the same three-step contract (authenticate, search,
// extract) with a different acquisition technique: the stealth engine speaks
// TLS with a browser fingerprint, the basic engine is a plain HTTP client.
// The Dual runner drives one engine through the full state machine and
// restarts from scratch on the other when any step fails.
package scraper

import (
	"context"
	"errors"

	"jobscout/scraper-service/internal/model"
)

// Backend identifies which engine produced a result set.
type Backend string

const (
	BackendStealth Backend = "stealth"
	BackendBasic   Backend = "basic"
)

// Credentials is the platform credential pair handed to an engine. The
// scraper does not select identities; it only consumes what it is given.
type Credentials struct {
	Email    string
	Password string
}

// RawItem is one search hit before extraction: the listing card markup and
// the link it points at.
type RawItem struct {
	URL      string
	CardHTML string
}

// Engine is the automation contract both backends implement.
type Engine interface {
	Name() Backend

	// Authenticate logs the credential pair into the platform. A
	// platform-side security challenge surfaces as ErrAuthChallenge.
	Authenticate(ctx context.Context, creds Credentials) error

	// Search runs the query and returns raw listing cards, paginating up
	// to the engine's page ceiling or query.MaxResults hits.
	Search(ctx context.Context, query model.SearchQuery) ([]RawItem, error)

	// Extract converts one raw item into a listing. A nil listing with a
	// nil error means the item carried nothing usable.
	Extract(ctx context.Context, item RawItem) (*model.JobListing, error)
}

// Failure classes the orchestrator branches on.
var (
	// ErrAuthChallenge: the platform flagged this identity (captcha,
	// checkpoint, verification). Identity-level; the account should be
	// penalized and another may succeed.
	ErrAuthChallenge = errors.New("platform security challenge")

	// ErrNavigationTimeout: a page or endpoint did not respond in time.
	// Engine-level and retryable a bounded number of times in-engine.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrBothEnginesFailed: the full state machine failed on both
	// engines. Terminal for this scrape attempt.
	ErrBothEnginesFailed = errors.New("both engines failed")
)
