package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/identity"
	"jobscout/scraper-service/internal/model"
	"jobscout/scraper-service/internal/task"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeTasks struct {
	submitID  string
	submitErr error
	task      *task.Task
	statusErr error
	cancelOK  bool
	cancelErr error

	gotQuery model.SearchQuery
}

func (f *fakeTasks) Submit(_ context.Context, _, _ string, q model.SearchQuery) (string, error) {
	f.gotQuery = q
	return f.submitID, f.submitErr
}

func (f *fakeTasks) Status(context.Context, string) (*task.Task, error) {
	return f.task, f.statusErr
}

func (f *fakeTasks) Cancel(context.Context, string) (bool, error) {
	return f.cancelOK, f.cancelErr
}

type fakePool struct {
	stats identity.Stats
	err   error
}

func (f *fakePool) Stats(context.Context) (identity.Stats, error) {
	return f.stats, f.err
}

func newTestHandler(tasks *fakeTasks, pool *fakePool) *Handler {
	return NewHandler(tasks, pool, zerolog.Nop())
}

func doRequest(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

// ── endpoints ────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	h := newTestHandler(&fakeTasks{}, &fakePool{})
	rec := doRequest(h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestSubmitSearch(t *testing.T) {
	tasks := &fakeTasks{submitID: "task-1"}
	pool := &fakePool{stats: identity.Stats{TotalActive: 3, Available: 2}}
	h := newTestHandler(tasks, pool)

	rec := doRequest(h, http.MethodPost, "/api/jobs/search",
		`{"userId":"u1","resumeId":"r1","jobTitle":"Go Developer","location":"Remote","maxResults":10}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["taskId"] != "task-1" || resp["status"] != "PENDING" {
		t.Errorf("response = %v", resp)
	}
	if tasks.gotQuery.Title != "Go Developer" || tasks.gotQuery.MaxResults != 10 {
		t.Errorf("query = %+v", tasks.gotQuery)
	}
}

func TestSubmitSearchValidation(t *testing.T) {
	h := newTestHandler(&fakeTasks{}, &fakePool{stats: identity.Stats{Available: 1}})

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "nope"},
		{name: "missing userId", body: `{"resumeId":"r1","jobTitle":"Dev"}`},
		{name: "missing jobTitle", body: `{"userId":"u1","resumeId":"r1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, "/api/jobs/search", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSubmitSearchNoCapacity(t *testing.T) {
	pool := &fakePool{stats: identity.Stats{TotalActive: 2, Available: 0, RateLimited: 2}}
	h := newTestHandler(&fakeTasks{submitID: "task-1"}, pool)

	rec := doRequest(h, http.MethodPost, "/api/jobs/search",
		`{"userId":"u1","resumeId":"r1","jobTitle":"Dev"}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestSearchStatus(t *testing.T) {
	tasks := &fakeTasks{task: &task.Task{ID: "task-1", Status: task.StatusRunning}}
	h := newTestHandler(tasks, &fakePool{})

	rec := doRequest(h, http.MethodGet, "/api/jobs/search/task-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "task-1" || got.Status != task.StatusRunning {
		t.Errorf("task = %+v", got)
	}
}

func TestSearchStatusNotFound(t *testing.T) {
	tasks := &fakeTasks{statusErr: task.ErrTaskNotFound}
	h := newTestHandler(tasks, &fakePool{})

	rec := doRequest(h, http.MethodGet, "/api/jobs/search/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCancelSearch(t *testing.T) {
	tests := []struct {
		name     string
		tasks    *fakeTasks
		wantCode int
	}{
		{name: "accepted", tasks: &fakeTasks{cancelOK: true}, wantCode: http.StatusAccepted},
		{name: "already finished", tasks: &fakeTasks{cancelOK: false}, wantCode: http.StatusConflict},
		{name: "unknown", tasks: &fakeTasks{cancelErr: task.ErrTaskNotFound}, wantCode: http.StatusNotFound},
		{name: "store error", tasks: &fakeTasks{cancelErr: errors.New("boom")}, wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(tt.tasks, &fakePool{})
			rec := doRequest(h, http.MethodDelete, "/api/jobs/search/task-1", "")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestAccountStats(t *testing.T) {
	pool := &fakePool{stats: identity.Stats{TotalActive: 5, Available: 3, RateLimited: 1, CoolingDown: 1}}
	h := newTestHandler(&fakeTasks{}, pool)

	rec := doRequest(h, http.MethodGet, "/api/accounts/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got identity.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got != pool.stats {
		t.Errorf("stats = %+v, want %+v", got, pool.stats)
	}
}
