package api

import (
	"context"
	"net/http"

	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/internal/domain/types"
)

// PositionDependencies defines the position aggregate read.
type PositionDependencies interface {
	PositionAverages(ctx context.Context, position string, rng service.DateRange) (types.PositionAverages, error)
}

// PositionsHandler handles position aggregate requests.
type PositionsHandler struct {
	deps PositionDependencies
}

// NewPositionsHandler creates a new positions handler.
func NewPositionsHandler(deps PositionDependencies) *PositionsHandler {
	return &PositionsHandler{deps: deps}
}

// HandleGetAverages handles GET /positions/averages?position=P requests.
func (h *PositionsHandler) HandleGetAverages(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	avg, err := h.deps.PositionAverages(r.Context(), r.URL.Query().Get("position"), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avg)
}
