// Package httpapi exposes the scrape task surface over REST.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/identity"
	"jobscout/scraper-service/internal/model"
	"jobscout/scraper-service/internal/task"
)

// TaskService is the task surface the handlers call.
type TaskService interface {
	Submit(ctx context.Context, userID, resumeID string, query model.SearchQuery) (string, error)
	Status(ctx context.Context, taskID string) (*task.Task, error)
	Cancel(ctx context.Context, taskID string) (bool, error)
}

// PoolStats exposes identity pool capacity for admission control.
type PoolStats interface {
	Stats(ctx context.Context) (identity.Stats, error)
}

// Handler carries the HTTP endpoints.
type Handler struct {
	tasks TaskService
	pool  PoolStats
	log   zerolog.Logger
}

func NewHandler(tasks TaskService, pool PoolStats, log zerolog.Logger) *Handler {
	return &Handler{tasks: tasks, pool: pool, log: log.With().Str("component", "http").Logger()}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/search", h.submitSearch).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/search/{id}", h.searchStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/search/{id}", h.cancelSearch).Methods(http.MethodDelete)
	r.HandleFunc("/api/accounts/stats", h.accountStats).Methods(http.MethodGet)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	UserID     string `json:"userId"`
	ResumeID   string `json:"resumeId"`
	JobTitle   string `json:"jobTitle"`
	Location   string `json:"location"`
	MaxResults int    `json:"maxResults"`
}

// submitSearch accepts a scrape task. Admission is capacity-aware: when the
// identity pool has nothing available the request is refused up front with
// 503 instead of queueing a task doomed to fail.
func (h *Handler) submitSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.ResumeID == "" || req.JobTitle == "" {
		jsonError(w, http.StatusBadRequest, "userId, resumeId and jobTitle are required")
		return
	}

	st, err := h.pool.Stats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("pool stats unavailable")
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if st.Available == 0 {
		w.Header().Set("Retry-After", "900")
		jsonError(w, http.StatusServiceUnavailable, "no scraping capacity available, retry later")
		return
	}

	id, err := h.tasks.Submit(r.Context(), req.UserID, req.ResumeID, model.SearchQuery{
		Title:      req.JobTitle,
		Location:   req.Location,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"taskId": id,
		"status": string(task.StatusPending),
	})
}

func (h *Handler) searchStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, err := h.tasks.Status(r.Context(), id)
	if errors.Is(err, task.ErrTaskNotFound) {
		jsonError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("task_id", id).Msg("status lookup failed")
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) cancelSearch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ok, err := h.tasks.Cancel(r.Context(), id)
	if errors.Is(err, task.ErrTaskNotFound) {
		jsonError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("task_id", id).Msg("cancel failed")
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		jsonError(w, http.StatusConflict, "task already finished")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"taskId": id, "cancelRequested": "true"})
}

func (h *Handler) accountStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.pool.Stats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("pool stats unavailable")
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
