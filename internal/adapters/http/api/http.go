// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/internal/domain/stats"
)

// Dependencies required by HTTP handlers. Each handler only sees the slice
// it needs; the service satisfies all of them.
type Dependencies interface {
	ObservationDependencies
	AthleteDependencies
	LeaderboardDependencies
	PositionDependencies
	CompareDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	observationsHandler *ObservationsHandler
	athletesHandler     *AthletesHandler
	leaderboardHandler  *LeaderboardHandler
	positionsHandler    *PositionsHandler
	compareHandler      *CompareHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(deps),
		observationsHandler: NewObservationsHandler(deps),
		athletesHandler:     NewAthletesHandler(deps),
		leaderboardHandler:  NewLeaderboardHandler(deps),
		positionsHandler:    NewPositionsHandler(deps),
		compareHandler:      NewCompareHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/observations", MetricsMiddleware(s.observationsHandler.HandlePostObservation, "observations"))
	mux.HandleFunc("/athletes", MetricsMiddleware(s.athletesHandler.HandleListAthletes, "athletes"))
	mux.HandleFunc("/athletes/", MetricsMiddleware(s.athletesHandler.HandleGetAthlete, "athlete"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/positions/averages", MetricsMiddleware(s.positionsHandler.HandleGetAverages, "position_averages"))
	mux.HandleFunc("/compare", MetricsMiddleware(s.compareHandler.HandleCompare, "compare"))
}

type errorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Issues  []issue `json:"issues,omitempty"`
}

// issue is one field-level problem in a request body.
type issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps domain and service sentinels to a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stats.ErrUnknownAthlete):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, service.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "invalid_limit", err)
	case errors.Is(err, service.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err)
	case errors.Is(err, model.ErrUnknownMetric):
		writeError(w, http.StatusBadRequest, "unknown_metric", err)
	case errors.Is(err, model.ErrMissingAthlete),
		errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrMissingParameter):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// allowMethod writes 405 and returns false when r uses another method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Errorf("%w: %s", ErrMethodNotAllowed, r.Method))
	return false
}

// dateRange reads the optional from/to query parameters.
func dateRange(r *http.Request) (service.DateRange, error) {
	var rng service.DateRange
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := model.ParseDate(raw)
		if err != nil {
			return rng, fmt.Errorf("%w: from: %w", ErrBadRequest, err)
		}
		rng.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := model.ParseDate(raw)
		if err != nil {
			return rng, fmt.Errorf("%w: to: %w", ErrBadRequest, err)
		}
		rng.To = t
	}
	return rng, rng.Validate()
}
