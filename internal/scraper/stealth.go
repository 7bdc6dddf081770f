package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	fhttpcookiejar "github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"jobscout/scraper-service/internal/model"
)

const (
	stealthPageSize = 25
	stealthMaxPages = 5
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// StealthEngine is the primary backend: a TLS-fingerprinted HTTP client
// presenting itself as desktop Chrome, with a cookie jar for session
// persistence and randomized pacing between page loads.
type StealthEngine struct {
	client   tls_client.HttpClient
	limiter  *hostLimiter
	delayMin time.Duration
	delayMax time.Duration
}

// NewStealthEngine builds the engine. delayMin/delayMax bound the random
// pauses between paginated page loads.
func NewStealthEngine(delayMin, delayMax time.Duration) (*StealthEngine, error) {
	jar, _ := fhttpcookiejar.New(nil)

	client, err := tls_client.NewHttpClient(
		tls_client.NewNoopLogger(),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithTimeoutSeconds(30),
		tls_client.WithCookieJar(jar),
	)
	if err != nil {
		return nil, fmt.Errorf("tls client: %w", err)
	}

	return &StealthEngine{
		client:   client,
		limiter:  newHostLimiter(1, 2),
		delayMin: delayMin,
		delayMax: delayMax,
	}, nil
}

func (e *StealthEngine) Name() Backend { return BackendStealth }

// Authenticate performs the platform login form flow. A redirect into a
// checkpoint or challenge page means the identity has been flagged.
func (e *StealthEngine) Authenticate(ctx context.Context, creds Credentials) error {
	doc, _, err := e.fetchDoc(ctx, platformBaseURL+"/login")
	if err != nil {
		return err
	}

	csrf, _ := doc.Find("input[name='loginCsrfParam']").First().Attr("value")

	form := url.Values{}
	form.Set("session_key", creds.Email)
	form.Set("session_password", creds.Password)
	if csrf != "" {
		form.Set("loginCsrfParam", csrf)
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost,
		platformBaseURL+"/uas/login-submit", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", randomUA())

	resp, err := e.client.Do(req)
	if err != nil {
		return classifyFetchErr(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}
	if resp.Request != nil && challengeURL(resp.Request.URL.String()) {
		return fmt.Errorf("%w: redirected to %s", ErrAuthChallenge, resp.Request.URL.Path)
	}
	return nil
}

func (e *StealthEngine) Search(ctx context.Context, query model.SearchQuery) ([]RawItem, error) {
	max := query.MaxResults
	if max <= 0 {
		max = stealthPageSize
	}

	var items []RawItem
	for page := 0; page < stealthMaxPages; page++ {
		target := guestSearchURL(query, page*stealthPageSize)
		if err := e.limiter.waitURL(ctx, target); err != nil {
			return nil, err
		}

		doc, _, err := e.fetchDoc(ctx, target)
		if err != nil {
			return nil, err
		}

		batch := parseSearchPage(doc)
		if len(batch) == 0 {
			break
		}
		items = append(items, batch...)
		if len(items) >= max {
			items = items[:max]
			break
		}
		if len(batch) < stealthPageSize {
			break
		}
		if err := sleepCtx(ctx, jitterBetween(e.delayMin, e.delayMax)); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (e *StealthEngine) Extract(_ context.Context, item RawItem) (*model.JobListing, error) {
	return parseCard(item, time.Now().UTC()), nil
}

func (e *StealthEngine) fetchDoc(ctx context.Context, target string) (*goquery.Document, string, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", randomUA())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", classifyFetchErr(err)
	}
	defer resp.Body.Close()

	finalURL := target
	if resp.Request != nil {
		finalURL = resp.Request.URL.String()
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, finalURL, err
	}
	if challengeURL(finalURL) {
		return nil, finalURL, fmt.Errorf("%w: redirected to challenge page", ErrAuthChallenge)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, finalURL, err
	}
	return doc, finalURL, nil
}

// guestSearchURL builds one page of the platform's paginated search feed.
func guestSearchURL(query model.SearchQuery, start int) string {
	values := url.Values{}
	values.Set("keywords", query.Title)
	if query.Location != "" {
		values.Set("location", query.Location)
	}
	if start > 0 {
		values.Set("start", strconv.Itoa(start))
	}
	return platformBaseURL + "/jobs-guest/jobs/api/seeMoreJobPostings/search?" + values.Encode()
}

func challengeURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "checkpoint") || strings.Contains(lower, "challenge")
}

func randomUA() string {
	return userAgents[rand.Intn(len(userAgents))]
}
