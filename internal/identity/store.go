package identity

import "context"

// Store is the persistence contract for scraping accounts. Lease must be
// atomic: concurrent callers never receive the same account for overlapping
// use. PGStore is the production implementation.
type Store interface {
	// Lease picks the best eligible account, stamps last_used_at = now and
	// requests_today += 1 in the same operation, and returns the stamped
	// row. Returns (nil, nil) when no account is eligible.
	Lease(ctx context.Context, limits Limits) (*Account, error)

	// MarkFailed forces the account into cooldown (last_used_at = now)
	// without charging a request against its daily cap.
	MarkFailed(ctx context.Context, accountID string) error

	// Stats counts active accounts by availability bucket.
	Stats(ctx context.Context, limits Limits) (Stats, error)

	// Insert adds a new account (credentials already encrypted),
	// assigning a.ID when empty.
	Insert(ctx context.Context, a *Account) error

	// Deactivate soft-deletes an account; rows are never hard-deleted.
	Deactivate(ctx context.Context, accountID string) error

	// List returns every account, newest first, credentials still encrypted.
	List(ctx context.Context) ([]Account, error)

	// ResetDailyCounts zeroes requests_today across the pool. Invoked by
	// the midnight cron job.
	ResetDailyCounts(ctx context.Context) (int64, error)
}
