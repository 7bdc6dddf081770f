package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/model"
)

// Result is the outcome of one successful scrape. Backend is always exactly
// one engine; a result set never mixes records from both.
type Result struct {
	Listings []model.JobListing
	Backend  Backend
	Dropped  int // records rejected for missing mandatory fields

	// AuthChallenged is set when the primary engine hit a security
	// challenge before the fallback succeeded, so the caller can still
	// penalize the identity.
	AuthChallenged bool
}

// Dual drives the authenticate → search → extract state machine against the
// primary engine and, on any failure, restarts the whole machine against
// the secondary. Nothing carries over between attempts.
type Dual struct {
	primary    Engine
	secondary  Engine
	delayMin   time.Duration
	delayMax   time.Duration
	navRetries int
	log        zerolog.Logger
}

// NewDual wires the two engines. navRetries bounds in-engine retries of
// navigation timeouts during the search step.
func NewDual(primary, secondary Engine, delayMin, delayMax time.Duration, log zerolog.Logger) *Dual {
	return &Dual{
		primary:    primary,
		secondary:  secondary,
		delayMin:   delayMin,
		delayMax:   delayMax,
		navRetries: 2,
		log:        log.With().Str("component", "scraper").Logger(),
	}
}

// Run scrapes the query with the given credentials. On total failure the
// returned error matches ErrBothEnginesFailed and also carries both engine
// errors, so errors.Is still finds ErrAuthChallenge underneath.
func (d *Dual) Run(ctx context.Context, creds Credentials, query model.SearchQuery) (Result, error) {
	res, primaryErr := d.attempt(ctx, d.primary, creds, query)
	if primaryErr == nil {
		return res, nil
	}

	d.log.Warn().Err(primaryErr).Str("engine", string(d.primary.Name())).
		Msg("primary engine failed, falling back")

	if ctx.Err() != nil {
		return Result{}, primaryErr
	}

	res, secondaryErr := d.attempt(ctx, d.secondary, creds, query)
	if secondaryErr == nil {
		res.AuthChallenged = errors.Is(primaryErr, ErrAuthChallenge)
		return res, nil
	}

	return Result{}, fmt.Errorf("%w: %s: %w; %s: %w", ErrBothEnginesFailed,
		d.primary.Name(), primaryErr, d.secondary.Name(), secondaryErr)
}

// attempt runs the full state machine on one engine. Any stage error aborts
// the attempt entirely; partial results never leak out.
func (d *Dual) attempt(ctx context.Context, eng Engine, creds Credentials, query model.SearchQuery) (Result, error) {
	// AUTHENTICATE
	if err := eng.Authenticate(ctx, creds); err != nil {
		return Result{}, fmt.Errorf("%s authenticate: %w", eng.Name(), err)
	}
	if err := sleepCtx(ctx, jitterBetween(d.delayMin, d.delayMax)); err != nil {
		return Result{}, err
	}

	// SEARCH — navigation timeouts are retried a bounded number of times
	// before the engine is given up on.
	var items []RawItem
	var err error
	for try := 0; ; try++ {
		items, err = eng.Search(ctx, query)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrNavigationTimeout) || try >= d.navRetries || ctx.Err() != nil {
			return Result{}, fmt.Errorf("%s search: %w", eng.Name(), err)
		}
		d.log.Debug().Err(err).Str("engine", string(eng.Name())).Int("try", try+1).
			Msg("navigation timeout, retrying in-engine")
		if err := sleepCtx(ctx, jitterBetween(d.delayMin, d.delayMax)); err != nil {
			return Result{}, err
		}
	}

	// EXTRACT — per-record fault isolation: a bad record is dropped and
	// counted, never fatal to the batch.
	res := Result{Backend: eng.Name()}
	for i, item := range items {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		rec, err := eng.Extract(ctx, item)
		if err != nil || rec == nil {
			res.Dropped++
			continue
		}
		if rec.Title == "" || rec.CanonicalURL == "" {
			res.Dropped++
			continue
		}
		rec.Source = string(eng.Name())
		res.Listings = append(res.Listings, *rec)

		if query.MaxResults > 0 && len(res.Listings) >= query.MaxResults {
			break
		}
		if i < len(items)-1 {
			if err := sleepCtx(ctx, jitterBetween(d.delayMin, d.delayMax)); err != nil {
				return Result{}, err
			}
		}
	}

	d.log.Info().Str("engine", string(eng.Name())).
		Int("listings", len(res.Listings)).Int("dropped", res.Dropped).
		Msg("scrape attempt complete")
	return res, nil
}
