package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store on PostgreSQL. The lease runs as a single
// UPDATE over a FOR UPDATE SKIP LOCKED pick, so selection and usage stamp
// commit together and concurrent workers skip rows already taken.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Lease(ctx context.Context, limits Limits) (*Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx,
		`UPDATE scraping_accounts sa
		 SET last_used_at = NOW(), requests_today = requests_today + 1
		 FROM (
		   SELECT id FROM scraping_accounts
		   WHERE is_active = TRUE
		     AND requests_today < $1
		     AND (last_used_at IS NULL OR last_used_at < NOW() - $2::interval)
		   ORDER BY is_premium DESC, last_used_at ASC NULLS FIRST
		   LIMIT 1
		   FOR UPDATE SKIP LOCKED
		 ) pick
		 WHERE sa.id = pick.id
		 RETURNING sa.id, sa.email, sa.password, sa.is_premium, sa.is_active,
		           sa.last_used_at, sa.requests_today, sa.created_at`,
		limits.DailyCap, limits.Cooldown,
	).Scan(
		&a.ID, &a.Email, &a.Password, &a.IsPremium, &a.IsActive,
		&a.LastUsedAt, &a.RequestsToday, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lease account: %w", err)
	}
	return &a, nil
}

func (s *PGStore) MarkFailed(ctx context.Context, accountID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scraping_accounts SET last_used_at = NOW() WHERE id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("mark account failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", accountID)
	}
	return nil
}

func (s *PGStore) Stats(ctx context.Context, limits Limits) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE is_active),
		   COUNT(*) FILTER (WHERE is_active AND requests_today < $1
		                    AND (last_used_at IS NULL OR last_used_at < NOW() - $2::interval)),
		   COUNT(*) FILTER (WHERE is_active AND requests_today >= $1),
		   COUNT(*) FILTER (WHERE is_active AND requests_today < $1
		                    AND last_used_at >= NOW() - $2::interval)
		 FROM scraping_accounts`,
		limits.DailyCap, limits.Cooldown,
	).Scan(&st.TotalActive, &st.Available, &st.RateLimited, &st.CoolingDown)
	if err != nil {
		return Stats{}, fmt.Errorf("pool stats: %w", err)
	}
	return st, nil
}

func (s *PGStore) Insert(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scraping_accounts
		   (id, email, password, is_premium, is_active, requests_today, created_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6)`,
		a.ID, a.Email, a.Password, a.IsPremium, a.IsActive, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PGStore) Deactivate(ctx context.Context, accountID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scraping_accounts SET is_active = FALSE WHERE id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", accountID)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, password, is_premium, is_active, last_used_at,
		        requests_today, created_at
		 FROM scraping_accounts
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(
			&a.ID, &a.Email, &a.Password, &a.IsPremium, &a.IsActive,
			&a.LastUsedAt, &a.RequestsToday, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PGStore) ResetDailyCounts(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scraping_accounts SET requests_today = 0 WHERE requests_today > 0`,
	)
	if err != nil {
		return 0, fmt.Errorf("reset daily counts: %w", err)
	}
	return tag.RowsAffected(), nil
}
