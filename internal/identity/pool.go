package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/secrets"
)

// Pool hands out decrypted scraping credentials on top of a Store, and
// classifies exhaustion so callers can report a precise cause.
type Pool struct {
	store  Store
	cipher *secrets.Cipher
	limits Limits
	log    zerolog.Logger
}

// NewPool returns a configured Pool.
func NewPool(store Store, cipher *secrets.Cipher, limits Limits, log zerolog.Logger) *Pool {
	return &Pool{
		store:  store,
		cipher: cipher,
		limits: limits,
		log:    log.With().Str("component", "identity").Logger(),
	}
}

// Acquire leases the best eligible account and returns its decrypted
// credentials. When nothing is eligible the error matches
// ErrNoAccountAvailable and one of its cause variants. Decryption failures
// are fatal and never retried: they mean the master key is wrong, not that
// the pool is busy.
func (p *Pool) Acquire(ctx context.Context) (Credentials, error) {
	a, err := p.store.Lease(ctx, p.limits)
	if err != nil {
		return Credentials{}, err
	}
	if a == nil {
		return Credentials{}, p.exhaustionCause(ctx)
	}

	email, err := p.cipher.Decrypt(a.Email)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypt credentials for account %s: %w", a.ID, err)
	}
	password, err := p.cipher.Decrypt(a.Password)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypt credentials for account %s: %w", a.ID, err)
	}

	p.log.Debug().Str("account_id", a.ID).Bool("premium", a.IsPremium).
		Int("requests_today", a.RequestsToday).Msg("account leased")

	return Credentials{AccountID: a.ID, Email: email, Password: password}, nil
}

// exhaustionCause inspects pool stats to decide which variant of
// ErrNoAccountAvailable to report.
func (p *Pool) exhaustionCause(ctx context.Context) error {
	st, err := p.store.Stats(ctx, p.limits)
	if err != nil {
		// Cause lookup failed; the umbrella error still holds.
		return ErrNoAccountAvailable
	}
	switch {
	case st.TotalActive == 0:
		return ErrNoneConfigured
	case st.CoolingDown == 0:
		return ErrAllRateLimited
	case st.RateLimited == 0:
		return ErrAllCoolingDown
	default:
		return fmt.Errorf("%w: %d at daily cap, %d cooling down",
			ErrNoAccountAvailable, st.RateLimited, st.CoolingDown)
	}
}

// MarkFailed puts the account into cooldown after a platform-side security
// challenge. The request that triggered the challenge is not charged
// against the daily cap.
func (p *Pool) MarkFailed(ctx context.Context, accountID string) error {
	p.log.Warn().Str("account_id", accountID).Msg("penalizing account after security challenge")
	return p.store.MarkFailed(ctx, accountID)
}

// Stats exposes pool capacity counts.
func (p *Pool) Stats(ctx context.Context) (Stats, error) {
	return p.store.Stats(ctx, p.limits)
}

// Add encrypts the credential pair and inserts a new active account,
// returning its id.
func (p *Pool) Add(ctx context.Context, email, password string, premium bool) (string, error) {
	encEmail, err := p.cipher.Encrypt(email)
	if err != nil {
		return "", fmt.Errorf("encrypt email: %w", err)
	}
	encPassword, err := p.cipher.Encrypt(password)
	if err != nil {
		return "", fmt.Errorf("encrypt password: %w", err)
	}

	a := Account{Email: encEmail, Password: encPassword, IsPremium: premium, IsActive: true}
	if err := p.store.Insert(ctx, &a); err != nil {
		return "", err
	}
	return a.ID, nil
}

// Deactivate soft-deletes an account.
func (p *Pool) Deactivate(ctx context.Context, accountID string) error {
	return p.store.Deactivate(ctx, accountID)
}

// AccountInfo is the admin view of an account: usable metadata, masked email.
type AccountInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	IsPremium     bool   `json:"isPremium"`
	IsActive      bool   `json:"isActive"`
	RequestsToday int    `json:"requestsToday"`
	LastUsedAt    string `json:"lastUsedAt,omitempty"`
}

// List returns every account with its email decrypted and masked.
func (p *Pool) List(ctx context.Context) ([]AccountInfo, error) {
	accounts, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		info := AccountInfo{
			ID:            a.ID,
			Email:         "***",
			IsPremium:     a.IsPremium,
			IsActive:      a.IsActive,
			RequestsToday: a.RequestsToday,
		}
		if a.LastUsedAt != nil {
			info.LastUsedAt = a.LastUsedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		if email, err := p.cipher.Decrypt(a.Email); err == nil {
			info.Email = maskEmail(email)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// maskEmail keeps the first rune of the local part and the full domain.
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
