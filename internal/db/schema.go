package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup. The resumes table is owned by
// the API service; only the columns this service reads are declared here.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS scraping_accounts (
		id              UUID PRIMARY KEY,
		email           TEXT NOT NULL,
		password        TEXT NOT NULL,
		is_premium      BOOLEAN NOT NULL DEFAULT FALSE,
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		last_used_at    TIMESTAMPTZ,
		requests_today  INTEGER NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS job_listings (
		id             UUID PRIMARY KEY,
		user_id        UUID NOT NULL,
		resume_id      UUID,
		canonical_url  TEXT NOT NULL UNIQUE,
		title          TEXT NOT NULL,
		company        TEXT NOT NULL DEFAULT '',
		location       TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		posted_date    TEXT NOT NULL DEFAULT '',
		is_remote      BOOLEAN NOT NULL DEFAULT FALSE,
		source         TEXT NOT NULL DEFAULT '',
		match_score    INTEGER,
		match_details  JSONB,
		scraped_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS scrape_tasks (
		id                UUID PRIMARY KEY,
		user_id           UUID NOT NULL,
		resume_id         UUID NOT NULL,
		job_title         TEXT NOT NULL,
		location          TEXT NOT NULL,
		max_results       INTEGER NOT NULL,
		status            TEXT NOT NULL DEFAULT 'PENDING',
		cancel_requested  BOOLEAN NOT NULL DEFAULT FALSE,
		summary           JSONB,
		error             TEXT NOT NULL DEFAULT '',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		finished_at       TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS resumes (
		id             UUID PRIMARY KEY,
		user_id        UUID NOT NULL,
		analyzed_data  JSONB
	)`,

	`CREATE INDEX IF NOT EXISTS idx_scrape_tasks_user ON scrape_tasks (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_job_listings_user ON job_listings (user_id, scraped_at DESC)`,
}

// EnsureSchema creates the service tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
