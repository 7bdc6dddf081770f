package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/model"
)

// fakeEngine scripts one engine's behavior per stage.
type fakeEngine struct {
	name        Backend
	authErr     error
	searchErrs  []error // consumed one per Search call; nil entry = success
	items       []RawItem
	extractFn   func(RawItem) (*model.JobListing, error)
	authCalls   int
	searchCalls int
}

func (f *fakeEngine) Name() Backend { return f.name }

func (f *fakeEngine) Authenticate(_ context.Context, _ Credentials) error {
	f.authCalls++
	return f.authErr
}

func (f *fakeEngine) Search(_ context.Context, _ model.SearchQuery) ([]RawItem, error) {
	f.searchCalls++
	if len(f.searchErrs) > 0 {
		err := f.searchErrs[0]
		f.searchErrs = f.searchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.items, nil
}

func (f *fakeEngine) Extract(_ context.Context, item RawItem) (*model.JobListing, error) {
	if f.extractFn != nil {
		return f.extractFn(item)
	}
	return &model.JobListing{CanonicalURL: item.URL, Title: "Job " + item.URL}, nil
}

func rawItems(n int) []RawItem {
	items := make([]RawItem, n)
	for i := range items {
		items[i] = RawItem{URL: fmt.Sprintf("https://example.com/jobs/%d", i)}
	}
	return items
}

func testDual(primary, secondary Engine) *Dual {
	return NewDual(primary, secondary, 0, 0, zerolog.Nop())
}

// ── engine selection / fallback ────────────────────────────────────────────

func TestRun_PrimarySucceeds(t *testing.T) {
	primary := &fakeEngine{name: BackendStealth, items: rawItems(3)}
	secondary := &fakeEngine{name: BackendBasic, items: rawItems(3)}

	res, err := testDual(primary, secondary).Run(context.Background(), Credentials{}, model.SearchQuery{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Backend != BackendStealth {
		t.Errorf("Backend = %q, want stealth", res.Backend)
	}
	if res.AuthChallenged {
		t.Error("AuthChallenged should be false when primary succeeds")
	}
	if secondary.authCalls != 0 {
		t.Error("secondary engine should not have been touched")
	}
	if len(res.Listings) != 3 {
		t.Errorf("got %d listings, want 3", len(res.Listings))
	}
}

func TestRun_AuthChallengeFallsBackAndFlags(t *testing.T) {
	primary := &fakeEngine{name: BackendStealth, authErr: fmt.Errorf("login: %w", ErrAuthChallenge)}
	secondary := &fakeEngine{name: BackendBasic, items: rawItems(2)}

	res, err := testDual(primary, secondary).Run(context.Background(), Credentials{}, model.SearchQuery{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Backend != BackendBasic {
		t.Errorf("Backend = %q, want basic", res.Backend)
	}
	if !res.AuthChallenged {
		t.Error("AuthChallenged should be set so the identity gets penalized")
	}
	for _, l := range res.Listings {
		if l.Source != string(BackendBasic) {
			t.Errorf("listing source = %q; result set must not mix engines", l.Source)
		}
	}
}

func TestRun_SearchFailureTriggersFullRestart(t *testing.T) {
	primary := &fakeEngine{name: BackendStealth, searchErrs: []error{errors.New("markup changed")}}
	secondary := &fakeEngine{name: BackendBasic, items: rawItems(1)}

	res, err := testDual(primary, secondary).Run(context.Background(), Credentials{}, model.SearchQuery{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Backend != BackendBasic {
		t.Errorf("Backend = %q, want basic", res.Backend)
	}
	// Fallback restarts the whole state machine, starting with authentication.
	if secondary.authCalls != 1 {
		t.Errorf("secondary authCalls = %d, want 1", secondary.authCalls)
	}
}

// ── navigation timeout retries ─────────────────────────────────────────────

func TestRun_NavTimeoutRetriedWithinEngine(t *testing.T) {
	primary := &fakeEngine{
		name:       BackendStealth,
		searchErrs: []error{ErrNavigationTimeout, ErrNavigationTimeout, nil},
		items:      rawItems(1),
	}
	secondary := &fakeEngine{name: BackendBasic}

	res, err := testDual(primary, secondary).Run(context.Background(), Credentials{}, model.SearchQuery{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Backend != BackendStealth {
		t.Errorf("Backend = %q, want stealth after in-engine retries", res.Backend)
	}
	if primary.searchCalls != 3 {
		t.Errorf("primary searchCalls = %d, want 3", primary.searchCalls)
	}
	if secondary.authCalls != 0 {
		t.Error("secondary should not run when retries recover the primary")
	}
}

func TestRun_NavTimeoutExhaustionFallsBack(t *testing.T) {
	primary := &fakeEngine{
		name:       BackendStealth,
		searchErrs: []error{ErrNavigationTimeout, ErrNavigationTimeout, ErrNavigationTimeout},
	}
	secondary := &fakeEngine{name: BackendBasic, items: rawItems(1)}

	res, err := testDual(primary, secondary).Run(context.Background(), Credentials{}, model.SearchQuery{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Backend != BackendBasic {
		t.Errorf("Backend = %q, want basic", res.Backend)
	}
	if primary.searchCalls != 3 {
		t.Errorf("primary searchCalls = %d, want initial try + 2 retries", primary.searchCalls)
	}
}

// ── both engines failed ────────────────────────────────────────────────────

func TestRun_BothEnginesFailed(t *testing.T) {
	primary := &fakeEngine{name: BackendStealth, authErr: ErrAuthChallenge}
	secondary := &fakeEngine{name: BackendBasic, searchErrs: []error{errors.New("blocked")}}

	_, err := testDual(primary, secondary).Run(context.Background(), Credentials{}, model.SearchQuery{})
	if !errors.Is(err, ErrBothEnginesFailed) {
		t.Fatalf("error = %v, want ErrBothEnginesFailed", err)
	}
	// The identity-level classification must survive the wrapping.
	if !errors.Is(err, ErrAuthChallenge) {
		t.Errorf("wrapped error should still match ErrAuthChallenge: %v", err)
	}
}

// ── extraction fault isolation ─────────────────────────────────────────────

func TestRun_PerRecordFaultIsolation(t *testing.T) {
	primary := &fakeEngine{
		name:  BackendStealth,
		items: rawItems(5),
		extractFn: func(item RawItem) (*model.JobListing, error) {
			switch item.URL {
			case "https://example.com/jobs/1":
				return nil, errors.New("selector missing")
			case "https://example.com/jobs/2":
				return nil, nil // nothing usable in the card
			case "https://example.com/jobs/3":
				return &model.JobListing{CanonicalURL: item.URL}, nil // no title
			default:
				return &model.JobListing{CanonicalURL: item.URL, Title: "ok", Company: ""}, nil
			}
		},
	}
	secondary := &fakeEngine{name: BackendBasic}

	res, err := testDual(primary, secondary).Run(context.Background(), Credentials{}, model.SearchQuery{})
	if err != nil {
		t.Fatalf("per-record failures must not fail the batch: %v", err)
	}
	if len(res.Listings) != 2 {
		t.Errorf("got %d listings, want 2 survivors", len(res.Listings))
	}
	if res.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", res.Dropped)
	}
	// A record with empty optional fields is kept.
	for _, l := range res.Listings {
		if l.Company != "" {
			t.Errorf("unexpected company %q", l.Company)
		}
	}
}

func TestRun_StopsAtMaxResults(t *testing.T) {
	primary := &fakeEngine{name: BackendStealth, items: rawItems(20)}
	secondary := &fakeEngine{name: BackendBasic}

	res, err := testDual(primary, secondary).Run(context.Background(), Credentials{},
		model.SearchQuery{MaxResults: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Listings) != 7 {
		t.Errorf("got %d listings, want exactly MaxResults", len(res.Listings))
	}
}

func TestRun_ContextCancelledSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &fakeEngine{name: BackendStealth, authErr: errors.New("boom")}
	secondary := &fakeEngine{name: BackendBasic, items: rawItems(1)}

	cancel()
	_, err := testDual(primary, secondary).Run(ctx, Credentials{}, model.SearchQuery{})
	if err == nil {
		t.Fatal("expected error")
	}
	if secondary.authCalls != 0 {
		t.Error("fallback engine should not start on a dead context")
	}
}
