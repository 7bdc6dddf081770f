package scraper

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout/scraper-service/internal/model"
)

const platformBaseURL = "https://www.linkedin.com"

// parseSearchPage pulls the raw listing cards out of one search results page.
// The platform rotates its markup, so every field probes several selectors.
func parseSearchPage(doc *goquery.Document) []RawItem {
	var items []RawItem
	doc.Find("li, div.base-card").Each(func(_ int, s *goquery.Selection) {
		link, ok := s.Find("a.base-card__full-link, a[href*='/jobs/view/']").First().Attr("href")
		if !ok || link == "" {
			return
		}
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		items = append(items, RawItem{URL: link, CardHTML: html})
	})
	return items
}

// parseCard extracts a listing from one card's markup. Optional fields stay
// empty when absent; the caller decides what is mandatory.
func parseCard(item RawItem, scrapedAt time.Time) *model.JobListing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.CardHTML))
	if err != nil {
		return nil
	}

	title := firstText(doc,
		"h3.base-search-card__title",
		"a.job-card-list__title",
		"div.base-card__title")
	company := firstText(doc,
		"h4.base-search-card__subtitle",
		"span.job-card-container__company-name",
		"a.hidden-nested-link")
	location := firstText(doc,
		"span.job-search-card__location",
		"li.job-card-container__metadata-item")
	snippet := firstText(doc,
		"div.job-search-card__snippet",
		"p.job-search-card__snippet")

	posted := ""
	if t := doc.Find("time").First(); t.Length() > 0 {
		if dt, ok := t.Attr("datetime"); ok && dt != "" {
			posted = dt
		} else {
			posted = strings.TrimSpace(t.Text())
		}
	}

	return &model.JobListing{
		CanonicalURL: CanonicalURL(item.URL),
		Title:        title,
		Company:      company,
		Location:     location,
		Description:  snippet,
		PostedDate:   posted,
		IsRemote:     isRemote(title, location, snippet),
		ScrapedAt:    scrapedAt,
	}
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// CanonicalURL normalizes a listing link into the dedup key: absolute,
// query and fragment stripped, no trailing slash.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "/") {
		raw = platformBaseURL + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		// Keep a best-effort key rather than dropping the record.
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			raw = raw[:i]
		}
		return strings.TrimSuffix(raw, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

func isRemote(parts ...string) bool {
	for _, p := range parts {
		if strings.Contains(strings.ToLower(p), "remote") {
			return true
		}
	}
	return false
}
