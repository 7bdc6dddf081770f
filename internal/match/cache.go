package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/model"
)

const (
	sharedTTL = 24 * time.Hour
	localTTL  = time.Hour
)

// ErrCacheMiss reports that a key is absent from a cache tier.
var ErrCacheMiss = errors.New("cache miss")

// SharedCache is the cross-process cache tier.
type SharedCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache backs SharedCache with Redis.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Matcher scores jobs against a profile with a two-tier cache in front of
// the scorer. The shared tier is consulted first so that other workers'
// verdicts are reused; hits are written through to the local tier. Only AI
// verdicts are cached, a heuristic verdict is a stopgap and must not mask a
// later AI answer.
type Matcher struct {
	scorer    Scorer
	heuristic HeuristicScorer
	shared    SharedCache
	local     *gocache.Cache
	log       zerolog.Logger
}

func NewMatcher(scorer Scorer, shared SharedCache, log zerolog.Logger) *Matcher {
	return &Matcher{
		scorer: scorer,
		shared: shared,
		local:  gocache.New(localTTL, 10*time.Minute),
		log:    log.With().Str("component", "matcher").Logger(),
	}
}

// ComputeOrGet returns a verdict for one job, consulting both cache tiers
// before calling the scorer. Scorer failures degrade to the heuristic and
// are never cached.
func (m *Matcher) ComputeOrGet(ctx context.Context, profile model.Profile, job model.JobListing) model.MatchResult {
	key := Fingerprint(profile, job.Description)

	if cached, ok := m.lookup(ctx, key); ok {
		return cached
	}

	if m.scorer == nil {
		return m.heuristic.Score(profile, job)
	}

	result, err := m.scorer.Score(ctx, profile, job)
	if err != nil {
		m.log.Warn().Err(err).Str("job", job.CanonicalURL).Msg("scorer failed, falling back to heuristic")
		return m.heuristic.Score(profile, job)
	}

	m.store(ctx, key, *result)
	return *result
}

func (m *Matcher) lookup(ctx context.Context, key string) (model.MatchResult, bool) {
	if m.shared != nil {
		raw, err := m.shared.Get(ctx, key)
		switch {
		case err == nil:
			var result model.MatchResult
			if jerr := json.Unmarshal(raw, &result); jerr == nil {
				m.local.Set(key, result, localTTL)
				return result, true
			}
			m.log.Warn().Str("key", key).Msg("discarding unreadable shared cache entry")
		case !errors.Is(err, ErrCacheMiss):
			m.log.Warn().Err(err).Msg("shared cache unreachable")
		}
	}

	if val, ok := m.local.Get(key); ok {
		if result, ok := val.(model.MatchResult); ok {
			return result, true
		}
	}
	return model.MatchResult{}, false
}

func (m *Matcher) store(ctx context.Context, key string, result model.MatchResult) {
	m.local.Set(key, result, localTTL)
	if m.shared == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := m.shared.Set(ctx, key, raw, sharedTTL); err != nil {
		m.log.Warn().Err(err).Msg("shared cache write failed")
	}
}
