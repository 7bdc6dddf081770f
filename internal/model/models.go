// Package model defines shared data structures for the scraper service.
package model

import "time"

// SearchQuery describes one job search to run against the external platform.
type SearchQuery struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	MaxResults int    `json:"maxResults"`
}

// JobListing is a normalised job offer extracted by one of the automation
// engines. CanonicalURL is the dedup key: the listings table carries a unique
// constraint on it and re-scraping the same URL resolves to the stored row.
type JobListing struct {
	ID           string       `json:"id,omitempty"`
	UserID       string       `json:"userId,omitempty"`
	ResumeID     string       `json:"resumeId,omitempty"`
	CanonicalURL string       `json:"canonicalUrl"`
	Title        string       `json:"title"`
	Company      string       `json:"company,omitempty"`
	Location     string       `json:"location,omitempty"`
	Description  string       `json:"description,omitempty"`
	PostedDate   string       `json:"postedDate,omitempty"` // raw platform text, e.g. "2 days ago"
	IsRemote     bool         `json:"isRemote"`
	Source       string       `json:"source"` // engine that produced the record
	MatchScore   int          `json:"matchScore"`
	MatchDetails *MatchResult `json:"matchDetails,omitempty"`
	ScrapedAt    time.Time    `json:"scrapedAt,omitempty"`
}

// Experience is one past position on a candidate profile.
type Experience struct {
	Title   string `json:"title"`
	Company string `json:"company"`
}

// Profile is the candidate profile a listing is scored against. It is read
// from the analyzed_data of an uploaded resume; every field is optional and
// the scorers treat missing data as empty, never as an error.
type Profile struct {
	Skills          []string     `json:"skills,omitempty"`
	SoftSkills      []string     `json:"softSkills,omitempty"`
	Experiences     []Experience `json:"experiences,omitempty"`
	Summary         string       `json:"summary,omitempty"`
	YearsExperience int          `json:"yearsExperience,omitempty"`
}

// Experience-fit categories, weakest to strongest.
const (
	FitWeak      = "weak"
	FitModerate  = "moderate"
	FitStrong    = "strong"
	FitExcellent = "excellent"
)

// How a MatchResult was produced.
const (
	ViaAI        = "ai"
	ViaHeuristic = "heuristic"
)

// MatchResult is the structured relevance verdict for one (profile, listing)
// pair. Score is always an integer in [0,100] regardless of which path
// computed it.
type MatchResult struct {
	Score          int      `json:"score"`
	MatchingSkills []string `json:"matchingSkills"`
	MissingSkills  []string `json:"missingSkills"`
	ExperienceFit  string   `json:"experienceFit"`
	Reasoning      string   `json:"reasoning"`
	ComputedVia    string   `json:"computedVia"`
}
