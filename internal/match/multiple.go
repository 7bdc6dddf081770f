package match

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"jobscout/scraper-service/internal/model"
)

// MatchMultiple scores every listing concurrently, bounded by concurrency,
// and returns the listings sorted by score descending. Per-listing failures
// never surface: the heuristic path inside ComputeOrGet guarantees every
// listing gets a verdict.
func (m *Matcher) MatchMultiple(ctx context.Context, profile model.Profile, listings []model.JobListing, concurrency int) []model.JobListing {
	if concurrency < 1 {
		concurrency = 1
	}

	out := make([]model.JobListing, len(listings))
	copy(out, listings)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			result := m.ComputeOrGet(gctx, profile, out[i])
			out[i].MatchScore = result.Score
			out[i].MatchDetails = &result
			return nil
		})
	}
	// Workers never return errors.
	_ = g.Wait()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchScore > out[j].MatchScore
	})
	return out
}
