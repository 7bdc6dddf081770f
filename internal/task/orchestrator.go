package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/identity"
	"jobscout/scraper-service/internal/model"
	"jobscout/scraper-service/internal/scraper"
)

// AccountPool hands out scraping credentials and takes failure reports.
type AccountPool interface {
	Acquire(ctx context.Context) (identity.Credentials, error)
	MarkFailed(ctx context.Context, accountID string) error
}

// JobScraper runs one search with the given credentials.
type JobScraper interface {
	Run(ctx context.Context, creds scraper.Credentials, query model.SearchQuery) (scraper.Result, error)
}

// JobMatcher scores a batch of listings against a profile.
type JobMatcher interface {
	MatchMultiple(ctx context.Context, profile model.Profile, listings []model.JobListing, concurrency int) []model.JobListing
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	MarkRunning(ctx context.Context, id string) (bool, error)
	CancelRequested(ctx context.Context, id string) (bool, error)
	FinishTask(ctx context.Context, id string, status Status, summary *Summary, taskErr string) error
	UpsertListing(ctx context.Context, l model.JobListing) (string, bool, error)
	GetResumeProfile(ctx context.Context, resumeID string) (model.Profile, error)
}

// Publisher announces task completion to interested services. Best effort:
// a publish failure never fails the task.
type Publisher interface {
	TaskCompleted(ctx context.Context, taskID string, status Status) error
}

const (
	maxAttempts  = 3 // first attempt plus two retries
	retryBackoff = 5 * time.Second
)

// Orchestrator executes one task end to end: acquire an identity, scrape,
// score, persist. Identity-related failures are retried with a fresh
// identity; everything else fails the task on first occurrence.
type Orchestrator struct {
	pool      AccountPool
	scraper   JobScraper
	matcher   JobMatcher
	store     Store
	publisher Publisher

	scrapeTimeout time.Duration
	matchWidth    int
	backoff       time.Duration
	log           zerolog.Logger
}

func NewOrchestrator(pool AccountPool, sc JobScraper, matcher JobMatcher, store Store, pub Publisher, scrapeTimeout time.Duration, matchWidth int, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		pool:          pool,
		scraper:       sc,
		matcher:       matcher,
		store:         store,
		publisher:     pub,
		scrapeTimeout: scrapeTimeout,
		matchWidth:    matchWidth,
		backoff:       retryBackoff,
		log:           log.With().Str("component", "orchestrator").Logger(),
	}
}

// Execute runs the pipeline for one task and records its terminal state.
// ctx carries the hard per-task deadline; the scrape stage additionally runs
// under its own softer deadline so a hung engine cannot eat the whole task
// budget before matching even starts.
func (o *Orchestrator) Execute(ctx context.Context, taskID string) {
	log := o.log.With().Str("task_id", taskID).Logger()

	ok, err := o.store.MarkRunning(ctx, taskID)
	if err != nil {
		log.Error().Err(err).Msg("cannot mark task running")
		return
	}
	if !ok {
		// Cancelled before pickup, or claimed by another worker.
		if cancelled, cerr := o.store.CancelRequested(ctx, taskID); cerr == nil && cancelled {
			o.finish(ctx, taskID, StatusCancelled, nil, "cancelled before start")
		}
		return
	}

	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		o.finish(ctx, taskID, StatusFailed, nil, err.Error())
		return
	}
	query := model.SearchQuery{Title: t.JobTitle, Location: t.Location, MaxResults: t.MaxResults}

	profile, err := o.store.GetResumeProfile(ctx, t.ResumeID)
	if err != nil {
		o.finish(ctx, taskID, StatusFailed, nil, err.Error())
		return
	}

	res, err := o.scrapeWithRetry(ctx, taskID, query)
	if err != nil {
		status := StatusFailed
		if errors.Is(err, context.Canceled) || o.cancelled(ctx, taskID) {
			status = StatusCancelled
		}
		o.finish(ctx, taskID, status, nil, err.Error())
		return
	}

	if o.cancelled(ctx, taskID) {
		o.finish(ctx, taskID, StatusCancelled, nil, "cancelled after scrape")
		return
	}

	for i := range res.Listings {
		res.Listings[i].UserID = t.UserID
		res.Listings[i].ResumeID = t.ResumeID
	}
	scored := o.matcher.MatchMultiple(ctx, profile, res.Listings, o.matchWidth)

	if o.cancelled(ctx, taskID) {
		o.finish(ctx, taskID, StatusCancelled, nil, "cancelled after matching")
		return
	}

	summary := Summary{
		JobsFound: len(scored),
		Dropped:   res.Dropped,
		Backend:   string(res.Backend),
	}
	for _, l := range scored {
		id, inserted, err := o.store.UpsertListing(ctx, l)
		if err != nil {
			log.Error().Err(err).Str("url", l.CanonicalURL).Msg("persist failed")
			o.finish(ctx, taskID, StatusFailed, nil, fmt.Sprintf("persist: %v", err))
			return
		}
		summary.ListingIDs = append(summary.ListingIDs, id)
		if inserted {
			summary.JobsSaved++
		}
		if l.MatchScore > summary.TopScore {
			summary.TopScore = l.MatchScore
		}
	}

	log.Info().Int("found", summary.JobsFound).Int("saved", summary.JobsSaved).
		Str("backend", summary.Backend).Msg("task succeeded")
	o.finish(ctx, taskID, StatusSucceeded, &summary, "")
}

// scrapeWithRetry leases an identity and runs the scrape, retrying with a
// fresh identity only on identity-related failures. Pool exhaustion is
// terminal: waiting will not create accounts.
func (o *Orchestrator) scrapeWithRetry(ctx context.Context, taskID string, query model.SearchQuery) (scraper.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if o.cancelled(ctx, taskID) {
			return scraper.Result{}, context.Canceled
		}

		creds, err := o.pool.Acquire(ctx)
		if err != nil {
			return scraper.Result{}, err
		}

		scrapeCtx, cancel := context.WithTimeout(ctx, o.scrapeTimeout)
		res, err := o.scraper.Run(scrapeCtx,
			scraper.Credentials{Email: creds.Email, Password: creds.Password}, query)
		cancel()

		if err == nil {
			if res.AuthChallenged {
				// Fallback rescued the scrape; the identity still burned.
				if perr := o.pool.MarkFailed(ctx, creds.AccountID); perr != nil {
					o.log.Error().Err(perr).Str("account_id", creds.AccountID).
						Msg("cannot penalize challenged account")
				}
			}
			return res, nil
		}
		lastErr = err

		if !errors.Is(err, scraper.ErrAuthChallenge) {
			return scraper.Result{}, err
		}

		if perr := o.pool.MarkFailed(ctx, creds.AccountID); perr != nil {
			o.log.Error().Err(perr).Str("account_id", creds.AccountID).
				Msg("cannot penalize challenged account")
		}
		o.log.Warn().Err(err).Str("task_id", taskID).Int("attempt", attempt).
			Msg("security challenge, retrying with fresh identity")

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return scraper.Result{}, ctx.Err()
			case <-time.After(o.backoff):
			}
		}
	}
	return scraper.Result{}, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (o *Orchestrator) cancelled(ctx context.Context, taskID string) bool {
	flag, err := o.store.CancelRequested(ctx, taskID)
	if err != nil {
		return false
	}
	return flag
}

// finish records the terminal state and announces it. The announcement uses
// a detached context so a task killed by deadline still reports.
func (o *Orchestrator) finish(ctx context.Context, taskID string, status Status, summary *Summary, taskErr string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := o.store.FinishTask(wctx, taskID, status, summary, taskErr); err != nil {
		o.log.Error().Err(err).Str("task_id", taskID).Msg("cannot record terminal state")
		return
	}
	if o.publisher != nil {
		if err := o.publisher.TaskCompleted(wctx, taskID, status); err != nil {
			o.log.Warn().Err(err).Str("task_id", taskID).Msg("completion event not published")
		}
	}
}
