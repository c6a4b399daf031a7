package api

import (
	"context"
	"fmt"
	"net/http"

	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/internal/domain/types"
)

// CompareDependencies defines the head-to-head read.
type CompareDependencies interface {
	Compare(ctx context.Context, a, b string, rng service.DateRange) (types.Comparison, error)
}

// CompareHandler handles head-to-head requests.
type CompareHandler struct {
	deps CompareDependencies
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(deps CompareDependencies) *CompareHandler {
	return &CompareHandler{deps: deps}
}

// HandleCompare handles GET /compare?a=X&b=Y requests.
func (h *CompareHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if a == "" || b == "" {
		writeServiceError(w, fmt.Errorf("%w: a and b are required", ErrMissingParameter))
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	cmp, err := h.deps.Compare(r.Context(), a, b, rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}
