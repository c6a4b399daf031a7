package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/internal/domain/types"
)

// AthleteDependencies defines the roster and profile reads.
type AthleteDependencies interface {
	Roster(ctx context.Context, rng service.DateRange) (types.Roster, error)
	Profile(ctx context.Context, athleteID string, rng service.DateRange) (types.Profile, error)
}

// AthletesHandler handles roster and profile requests.
type AthletesHandler struct {
	deps AthleteDependencies
}

// NewAthletesHandler creates a new athletes handler.
func NewAthletesHandler(deps AthleteDependencies) *AthletesHandler {
	return &AthletesHandler{deps: deps}
}

// HandleListAthletes handles GET /athletes requests.
func (h *AthletesHandler) HandleListAthletes(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	roster, err := h.deps.Roster(r.Context(), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// HandleGetAthlete handles GET /athletes/{athlete_id} requests. Athlete ids
// are names, so the segment is path-unescaped.
func (h *AthletesHandler) HandleGetAthlete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/athletes/")
	id, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(id) == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	profile, err := h.deps.Profile(r.Context(), id, rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
