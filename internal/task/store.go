package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobscout/scraper-service/internal/model"
)

// ErrTaskNotFound reports an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// PGStore persists tasks, listings and resume profiles in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// CreateTask inserts a new PENDING task and returns its id.
func (s *PGStore) CreateTask(ctx context.Context, userID, resumeID string, query model.SearchQuery) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_tasks (id, user_id, resume_id, job_title, location, max_results)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, resumeID, query.Title, query.Location, query.MaxResults)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

// GetTask loads one task by id.
func (s *PGStore) GetTask(ctx context.Context, id string) (*Task, error) {
	var (
		t          Task
		status     string
		summaryRaw []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, resume_id, job_title, location, max_results,
		       status, cancel_requested, summary, error, created_at, finished_at
		FROM scrape_tasks WHERE id = $1`, id).Scan(
		&t.ID, &t.UserID, &t.ResumeID, &t.JobTitle, &t.Location, &t.MaxResults,
		&status, &t.CancelRequested, &summaryRaw, &t.Error, &t.CreatedAt, &t.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	t.Status, err = ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if len(summaryRaw) > 0 {
		var sum Summary
		if err := json.Unmarshal(summaryRaw, &sum); err != nil {
			return nil, fmt.Errorf("get task: decode summary: %w", err)
		}
		t.Summary = &sum
	}
	return &t, nil
}

// MarkRunning transitions PENDING → RUNNING. Returns false if the task was
// no longer pending (cancelled before pickup, or picked up elsewhere).
func (s *PGStore) MarkRunning(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scrape_tasks SET status = $1
		WHERE id = $2 AND status = $3`,
		string(StatusRunning), id, string(StatusPending))
	if err != nil {
		return false, fmt.Errorf("mark running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RequestCancel flags a non-terminal task for cancellation. Returns false
// when the task is already terminal.
func (s *PGStore) RequestCancel(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scrape_tasks SET cancel_requested = TRUE
		WHERE id = $1 AND status IN ($2, $3)`,
		id, string(StatusPending), string(StatusRunning))
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CancelRequested reads the cancellation flag.
func (s *PGStore) CancelRequested(ctx context.Context, id string) (bool, error) {
	var flag bool
	err := s.pool.QueryRow(ctx,
		`SELECT cancel_requested FROM scrape_tasks WHERE id = $1`, id).Scan(&flag)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrTaskNotFound
	}
	if err != nil {
		return false, fmt.Errorf("cancel requested: %w", err)
	}
	return flag, nil
}

// FinishTask writes the terminal state exactly once: the guard on current
// status means a late writer loses and the first terminal verdict sticks.
func (s *PGStore) FinishTask(ctx context.Context, id string, status Status, summary *Summary, taskErr string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finish task: %q is not terminal", status)
	}
	var summaryRaw []byte
	if summary != nil {
		var err error
		summaryRaw, err = json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("finish task: encode summary: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE scrape_tasks
		SET status = $1, summary = $2, error = $3, finished_at = NOW()
		WHERE id = $4 AND status IN ($5, $6)`,
		string(status), summaryRaw, taskErr, id,
		string(StatusPending), string(StatusRunning))
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	return nil
}

// UpsertListing saves one listing, deduplicating on canonical URL. A
// re-scraped URL resolves to the already stored row's id without touching it.
func (s *PGStore) UpsertListing(ctx context.Context, l model.JobListing) (string, bool, error) {
	var detailsRaw []byte
	if l.MatchDetails != nil {
		var err error
		detailsRaw, err = json.Marshal(l.MatchDetails)
		if err != nil {
			return "", false, fmt.Errorf("upsert listing: encode details: %w", err)
		}
	}

	newID := uuid.NewString()
	var id string
	var inserted bool
	err := s.pool.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO job_listings
				(id, user_id, resume_id, canonical_url, title, company, location,
				 description, posted_date, is_remote, source, match_score, match_details)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (canonical_url) DO NOTHING
			RETURNING id
		)
		SELECT COALESCE(
			(SELECT id FROM ins),
			(SELECT id FROM job_listings WHERE canonical_url = $4)
		), EXISTS (SELECT 1 FROM ins)`,
		newID, l.UserID, nilIfEmpty(l.ResumeID), l.CanonicalURL, l.Title, l.Company,
		l.Location, l.Description, l.PostedDate, l.IsRemote, l.Source,
		l.MatchScore, detailsRaw).Scan(&id, &inserted)
	if err != nil {
		return "", false, fmt.Errorf("upsert listing: %w", err)
	}
	return id, inserted, nil
}

// GetResumeProfile reads the analyzed profile of a resume. A resume with no
// analyzed data yields an empty profile, not an error.
func (s *PGStore) GetResumeProfile(ctx context.Context, resumeID string) (model.Profile, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT analyzed_data FROM resumes WHERE id = $1`, resumeID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("resume %s not found", resumeID)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get resume profile: %w", err)
	}

	var profile model.Profile
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &profile); err != nil {
			return model.Profile{}, fmt.Errorf("get resume profile: decode: %w", err)
		}
	}
	return profile, nil
}

// nilIfEmpty maps "" to SQL NULL for optional UUID columns.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
