// Package task persists and executes scrape tasks: the acquire → scrape →
// match → persist pipeline behind the HTTP surface.
package task

import (
	"fmt"
	"time"
)

// Status is a scrape task lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus validates a status string from storage or transport.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// IsTerminal reports whether a task in this status will never change again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Summary is the outcome recorded on a succeeded task.
type Summary struct {
	JobsFound  int      `json:"jobsFound"`
	JobsSaved  int      `json:"jobsSaved"`
	Dropped    int      `json:"dropped"`
	Backend    string   `json:"backend"`
	TopScore   int      `json:"topScore"`
	ListingIDs []string `json:"listingIds"`
}

// Task is one scrape request and its current state.
type Task struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	ResumeID        string     `json:"resumeId"`
	JobTitle        string     `json:"jobTitle"`
	Location        string     `json:"location"`
	MaxResults      int        `json:"maxResults"`
	Status          Status     `json:"status"`
	CancelRequested bool       `json:"cancelRequested"`
	Summary         *Summary   `json:"summary,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
}
