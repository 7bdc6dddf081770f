package task

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/model"
)

func newTestService(t *testing.T, sc *fakeScraper) (*Service, *fixture) {
	t.Helper()
	f := newFixture(sc)
	svc := NewService(context.Background(), f.store, f.orch, 2, time.Minute, zerolog.Nop())
	return svc, f
}

func waitTerminal(t *testing.T, svc *Service, id string) *Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := svc.Status(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status.IsTerminal() {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", id)
	return nil
}

func TestServiceSubmitRunsTask(t *testing.T) {
	sc := &fakeScraper{result: scrapeResult("https://example.com/jobs/view/1")}
	svc, _ := newTestService(t, sc)

	id, err := svc.Submit(context.Background(), "user-1", "resume-1",
		model.SearchQuery{Title: "Go Developer", Location: "Remote", MaxResults: 5})
	if err != nil {
		t.Fatal(err)
	}

	got := waitTerminal(t, svc, id)
	if got.Status != StatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED (error: %q)", got.Status, got.Error)
	}
}

func TestServiceSubmitRequiresTitle(t *testing.T) {
	svc, _ := newTestService(t, &fakeScraper{})
	if _, err := svc.Submit(context.Background(), "user-1", "resume-1",
		model.SearchQuery{Location: "Remote"}); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestServiceSubmitDefaultsMaxResults(t *testing.T) {
	sc := &fakeScraper{result: scrapeResult()}
	svc, f := newTestService(t, sc)

	id, err := svc.Submit(context.Background(), "user-1", "resume-1",
		model.SearchQuery{Title: "Go Developer"})
	if err != nil {
		t.Fatal(err)
	}
	waitTerminal(t, svc, id)

	got, _ := f.store.GetTask(context.Background(), id)
	if got.MaxResults != 25 {
		t.Errorf("max results = %d, want default 25", got.MaxResults)
	}
}

func TestServiceCancel(t *testing.T) {
	svc, f := newTestService(t, &fakeScraper{})

	// A pending task can be flagged.
	f.addPendingTask("task-1")
	ok, err := svc.Cancel(context.Background(), "task-1")
	if err != nil || !ok {
		t.Fatalf("Cancel pending = (%v, %v), want (true, nil)", ok, err)
	}

	// A terminal task cannot.
	f.store.addTask(&Task{ID: "task-2", Status: StatusSucceeded})
	ok, err = svc.Cancel(context.Background(), "task-2")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Cancel succeeded on a terminal task")
	}

	// Unknown ids report not found.
	if _, err := svc.Cancel(context.Background(), "nope"); err == nil {
		t.Error("expected not-found error")
	}
}
