package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout/scraper-service/internal/model"
)

const (
	basicPageSize = 25
	basicMaxPages = 3
	basicTimeout  = 20 * time.Second
)

// BasicEngine is the fallback backend: an ordinary net/http client with a
// cookie jar. No TLS camouflage, so it draws blocks sooner, but it keeps
// working when the stealth transport is itself what the platform flags.
type BasicEngine struct {
	client   *http.Client
	limiter  *hostLimiter
	delayMin time.Duration
	delayMax time.Duration
}

// NewBasicEngine builds the fallback engine.
func NewBasicEngine(delayMin, delayMax time.Duration) *BasicEngine {
	jar, _ := cookiejar.New(nil)
	return &BasicEngine{
		client:   &http.Client{Timeout: basicTimeout, Jar: jar},
		limiter:  newHostLimiter(0.5, 1),
		delayMin: delayMin,
		delayMax: delayMax,
	}
}

func (e *BasicEngine) Name() Backend { return BackendBasic }

func (e *BasicEngine) Authenticate(ctx context.Context, creds Credentials) error {
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		platformBaseURL+"/uas/login-submit", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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

func (e *BasicEngine) Search(ctx context.Context, query model.SearchQuery) ([]RawItem, error) {
	max := query.MaxResults
	if max <= 0 {
		max = basicPageSize
	}

	var items []RawItem
	for page := 0; page < basicMaxPages; page++ {
		target := guestSearchURL(query, page*basicPageSize)
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
		if len(batch) < basicPageSize {
			break
		}
		if err := sleepCtx(ctx, jitterBetween(e.delayMin, e.delayMax)); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (e *BasicEngine) Extract(_ context.Context, item RawItem) (*model.JobListing, error) {
	return parseCard(item, time.Now().UTC()), nil
}

func (e *BasicEngine) fetchDoc(ctx context.Context, target string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
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
