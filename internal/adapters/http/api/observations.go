package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/pkg/metrics"
)

// maxObservationBody bounds a POST /observations payload.
const maxObservationBody = 1 << 20

// ObservationDependencies defines what POST /observations needs.
type ObservationDependencies interface {
	Ingest(ctx context.Context, o model.Observation) (service.IngestResult, error)
}

// ObservationsHandler handles observation submissions.
type ObservationsHandler struct {
	deps ObservationDependencies
}

// NewObservationsHandler creates a new observations handler.
func NewObservationsHandler(deps ObservationDependencies) *ObservationsHandler {
	return &ObservationsHandler{deps: deps}
}

// observationRequest mirrors the OpenAPI schema for POST /observations.
// Metric values may be numbers, numeric strings, placeholders or null.
type observationRequest struct {
	ObservationID string                     `json:"observation_id"`
	AthleteID     string                     `json:"athlete_id"`
	Position      string                     `json:"position"`
	Date          string                     `json:"date"`
	Metrics       map[string]json.RawMessage `json:"metrics"`
	Height        model.Optional[float64]    `json:"height"`
	Weight        model.Optional[float64]    `json:"weight"`
	BodyFat       model.Optional[float64]    `json:"body_fat"`
	Wingspan      model.Optional[float64]    `json:"wingspan"`
	ImageURL      model.Optional[string]     `json:"image_url"`
}

type ackResponse struct {
	Status        string  `json:"status"`
	Duplicate     bool    `json:"duplicate"`
	ObservationID string  `json:"observation_id"`
	Issues        []issue `json:"issues,omitempty"`
}

// toObservation converts the request. Values that fail coercion come back
// as issues and are left out; unknown metric names are an error.
func (req observationRequest) toObservation() (model.Observation, []issue, error) {
	o := model.Observation{
		ID:        strings.TrimSpace(req.ObservationID),
		AthleteID: strings.TrimSpace(req.AthleteID),
		Position:  strings.TrimSpace(req.Position),
		Values:    make(map[model.Metric]model.Optional[float64], len(req.Metrics)),
		Height:    req.Height,
		Weight:    req.Weight,
		BodyFat:   req.BodyFat,
		Wingspan:  req.Wingspan,
		ImageURL:  req.ImageURL,
	}
	if o.AthleteID == "" {
		return o, nil, model.ErrMissingAthlete
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return o, nil, err
	}
	o.Date = date

	names := make([]string, 0, len(req.Metrics))
	for name := range req.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var unknown, issues []issue
	for _, name := range names {
		m, err := model.ParseMetric(name)
		if err != nil {
			unknown = append(unknown, issue{Field: "metrics." + name, Message: err.Error()})
			continue
		}
		v, err := metricValue(m, req.Metrics[name])
		if err != nil {
			issues = append(issues, issue{Field: "metrics." + name, Message: err.Error()})
			continue
		}
		o.Values[m] = v
	}
	if len(unknown) > 0 {
		return o, unknown, model.ErrUnknownMetric
	}
	return o, issues, nil
}

// metricValue accepts a JSON number, a numeric string or null.
func metricValue(m model.Metric, raw json.RawMessage) (model.Optional[float64], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.None[float64](), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return model.Measure(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.ParseValue(m.String(), s)
	}
	return model.None[float64](), fmt.Errorf("%w: %s=%s", model.ErrInvalidMetricValue, m, raw)
}

// HandlePostObservation handles POST /observations requests.
func (h *ObservationsHandler) HandlePostObservation(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req observationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxObservationBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	o, issues, err := req.toObservation()
	if err != nil {
		metrics.RecordObservationRejected("invalid")
		if errors.Is(err, model.ErrUnknownMetric) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Code: "unknown_metric", Message: err.Error(), Issues: issues})
			return
		}
		writeServiceError(w, err)
		return
	}
	for _, is := range issues {
		metrics.RecordInvalidMetricValue(strings.TrimPrefix(is.Field, "metrics."))
	}

	res, err := h.deps.Ingest(r.Context(), o)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ack := ackResponse{Status: "accepted", ObservationID: res.ObservationID, Issues: issues}
	if res.Duplicate {
		ack.Status = "duplicate"
		ack.Duplicate = true
		writeJSON(w, http.StatusOK, ack)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
