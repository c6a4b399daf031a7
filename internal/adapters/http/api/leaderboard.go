package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, m model.Metric, position string, limit int, rng service.DateRange) (types.Leaderboard, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?metric=M&position=P&limit=N.
// position and limit are optional.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	if q.Get("metric") == "" {
		writeServiceError(w, fmt.Errorf("%w: metric", ErrMissingParameter))
		return
	}
	m, err := model.ParseMetric(q.Get("metric"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeServiceError(w, fmt.Errorf("%w: %q", service.ErrInvalidLimit, raw))
			return
		}
	}
	rng, err := dateRange(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	lb, err := h.deps.Leaderboard(r.Context(), m, q.Get("position"), limit, rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
