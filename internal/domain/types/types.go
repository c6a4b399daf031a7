// Package types contains the read shapes returned by the service and
// encoded by the HTTP API.
package types

import (
	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/internal/domain/stats"
)

// DateLayout is how observation dates are rendered.
const DateLayout = "2006-01-02"

// AthleteSummary is one roster row.
type AthleteSummary struct {
	AthleteID    string              `json:"athlete_id"`
	Position     string              `json:"position"`
	Observations int                 `json:"observations"`
	Score        model.Optional[int] `json:"athleticism_score"`
}

// Roster lists every athlete in the snapshot.
type Roster struct {
	Empty     bool             `json:"empty"`
	Athletes  []AthleteSummary `json:"athletes"`
	Positions []string         `json:"positions"`
}

// MetricStanding is one metric of an athlete profile.
type MetricStanding struct {
	Metric     model.Metric            `json:"metric"`
	Best       model.Optional[float64] `json:"personal_best"`
	Rank       model.Optional[int]     `json:"rank"`
	Percentile model.Optional[float64] `json:"percentile"`
}

// HistoryRow is one recent observation with its trend markers.
type HistoryRow struct {
	Date       string                                   `json:"date"`
	Values     map[model.Metric]model.Optional[float64] `json:"values"`
	Directions map[model.Metric]stats.Direction         `json:"directions"`
}

// Profile is the full view of one athlete.
type Profile struct {
	AthleteID string                  `json:"athlete_id"`
	Position  string                  `json:"position"`
	Height    model.Optional[float64] `json:"height"`
	Weight    model.Optional[float64] `json:"weight"`
	BodyFat   model.Optional[float64] `json:"body_fat"`
	Wingspan  model.Optional[float64] `json:"wingspan"`
	ImageURL  model.Optional[string]  `json:"image_url"`
	Score     model.Optional[int]     `json:"athleticism_score"`
	Metrics   []MetricStanding        `json:"metrics"`
	History   []HistoryRow            `json:"history"`
}

// Entry is one leaderboard row.
type Entry struct {
	Rank       int     `json:"rank"`
	AthleteID  string  `json:"athlete_id"`
	Position   string  `json:"position"`
	Value      float64 `json:"value"`
	Percentile float64 `json:"percentile"`
}

// Leaderboard ranks athletes on one metric.
type Leaderboard struct {
	Metric   model.Metric `json:"metric"`
	Position string       `json:"position,omitempty"`
	Empty    bool         `json:"empty"`
	Entries  []Entry      `json:"entries"`
}

// PositionAverage is the mean personal best per metric for one position.
type PositionAverage struct {
	Position string                                   `json:"position"`
	Averages map[model.Metric]model.Optional[float64] `json:"averages"`
}

// PositionAverages lists position aggregates sorted by position.
type PositionAverages struct {
	Empty     bool              `json:"empty"`
	Positions []PositionAverage `json:"positions"`
}

// DeltaRow compares two athletes on one metric.
type DeltaRow struct {
	Metric model.Metric            `json:"metric"`
	A      model.Optional[float64] `json:"a"`
	B      model.Optional[float64] `json:"b"`
	Diff   model.Optional[float64] `json:"delta"`
	Marker string                  `json:"marker,omitempty"`
}

// Comparison is a head-to-head between two athletes.
type Comparison struct {
	A      string     `json:"a"`
	B      string     `json:"b"`
	Deltas []DeltaRow `json:"deltas"`
}

// NewEntry converts an engine standing.
func NewEntry(s stats.Standing) Entry {
	return Entry{
		Rank:       s.Rank,
		AthleteID:  s.AthleteID,
		Position:   s.Position,
		Value:      s.Value,
		Percentile: s.Percentile,
	}
}

// NewDeltaRow converts an engine delta.
func NewDeltaRow(d stats.Delta) DeltaRow {
	return DeltaRow{Metric: d.Metric, A: d.A, B: d.B, Diff: d.Diff, Marker: d.Marker}
}

// NewMetricStanding reads one metric out of a record.
func NewMetricStanding(rec stats.Record, m model.Metric) MetricStanding {
	ms := MetricStanding{Metric: m, Best: rec.Best(m)}
	if r, ok := rec.Rank(m); ok {
		ms.Rank = model.Some(r)
	}
	if p, ok := rec.Percentile(m); ok {
		ms.Percentile = model.Some(p)
	}
	return ms
}
