package task

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"jobscout/scraper-service/internal/model"
)

// ServiceStore adds task creation to the orchestrator's Store surface.
type ServiceStore interface {
	Store
	CreateTask(ctx context.Context, userID, resumeID string, query model.SearchQuery) (string, error)
	RequestCancel(ctx context.Context, id string) (bool, error)
}

// Service accepts scrape tasks and runs them on background workers, bounded
// by a weighted semaphore so one process never runs more than workerBudget
// scrapes at once.
type Service struct {
	store        ServiceStore
	orchestrator *Orchestrator
	workers      *semaphore.Weighted
	taskTimeout  time.Duration
	baseCtx      context.Context
	log          zerolog.Logger
}

// NewService wires the task surface. baseCtx is the process lifetime:
// cancelling it stops new task goroutines from starting work.
func NewService(baseCtx context.Context, store ServiceStore, orch *Orchestrator, workerBudget int, taskTimeout time.Duration, log zerolog.Logger) *Service {
	if workerBudget < 1 {
		workerBudget = 1
	}
	return &Service{
		store:        store,
		orchestrator: orch,
		workers:      semaphore.NewWeighted(int64(workerBudget)),
		taskTimeout:  taskTimeout,
		baseCtx:      baseCtx,
		log:          log.With().Str("component", "tasks").Logger(),
	}
}

// Submit records a PENDING task and schedules it. The task id is returned
// immediately; callers poll Status for progress.
func (s *Service) Submit(ctx context.Context, userID, resumeID string, query model.SearchQuery) (string, error) {
	if query.Title == "" {
		return "", fmt.Errorf("job title is required")
	}
	if query.MaxResults < 1 {
		query.MaxResults = 25
	}

	id, err := s.store.CreateTask(ctx, userID, resumeID, query)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("task_id", id).Str("title", query.Title).Msg("task submitted")

	go s.run(id)
	return id, nil
}

func (s *Service) run(taskID string) {
	if err := s.workers.Acquire(s.baseCtx, 1); err != nil {
		s.log.Warn().Str("task_id", taskID).Msg("shutting down, task left pending")
		return
	}
	defer s.workers.Release(1)

	ctx, cancel := context.WithTimeout(s.baseCtx, s.taskTimeout)
	defer cancel()
	s.orchestrator.Execute(ctx, taskID)
}

// Status returns the current state of a task.
func (s *Service) Status(ctx context.Context, taskID string) (*Task, error) {
	return s.store.GetTask(ctx, taskID)
}

// Cancel flags a task for cooperative cancellation. Terminal tasks report
// ErrTaskNotFound if unknown, otherwise the flagging result.
func (s *Service) Cancel(ctx context.Context, taskID string) (bool, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return false, err
	}
	if t.Status.IsTerminal() {
		return false, nil
	}
	return s.store.RequestCancel(ctx, taskID)
}
