// Package scheduler runs the periodic maintenance jobs of the service.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Resetter clears per-day usage counters; implemented by the identity store.
type Resetter interface {
	ResetDailyCounts(ctx context.Context) (int64, error)
}

// Scheduler owns the cron loop. Currently one job: reset every account's
// daily request counter at midnight UTC.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func New(resetter Resetter, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		log:  log.With().Str("component", "scheduler").Logger(),
	}

	_, err := s.cron.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := resetter.ResetDailyCounts(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("daily counter reset failed")
			return
		}
		s.log.Info().Int64("accounts", n).Msg("daily request counters reset")
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}
