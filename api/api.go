package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/broker"
	"github.com/xraph/taskpool/cron"
	"github.com/xraph/taskpool/manager"
)

// API serves the HTTP routes of a pool.
type API struct {
	mgr           *manager.Manager
	broker        *broker.Broker
	scheduler     *cron.Scheduler
	logger        *slog.Logger
	watchInterval time.Duration
	upgrader      websocket.Upgrader
}

// New creates an API on top of mgr.
func New(mgr *manager.Manager, opts ...Option) *API {
	a := &API{
		mgr:           mgr,
		logger:        slog.Default(),
		watchInterval: time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns an http.Handler serving every route.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return mux
}

// RegisterRoutes registers all routes on mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/jobs", a.listJobs)
	mux.HandleFunc("POST /v1/jobs", a.addJob)
	mux.HandleFunc("GET /v1/jobs/{id}", a.getJob)
	mux.HandleFunc("POST /v1/jobs/{id}/tasks", a.addTasks)
	mux.HandleFunc("GET /v1/jobs/{id}/stats", a.stats)
	mux.HandleFunc("POST /v1/jobs/{id}/dispatch", a.dispatch)
	mux.HandleFunc("GET /v1/jobs/{id}/watch", a.watch)
	mux.HandleFunc("GET /v1/schedules", a.listSchedules)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("write response", slog.String("error", err.Error()))
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", slog.String("error", err.Error()))
	}
	a.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, taskpool.ErrJobNotFound), errors.Is(err, taskpool.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, taskpool.ErrInvalidCount),
		errors.Is(err, taskpool.ErrInvalidParts),
		errors.Is(err, taskpool.ErrSerialization),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest  = errors.New("bad request")
	errUnavailable = errors.New("not available on this server")
)

func jobIDParam(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	jobID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || jobID <= 0 {
		return 0, badRequest("invalid job id %q", raw)
	}
	return jobID, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}
