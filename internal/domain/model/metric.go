package model

import (
	"fmt"
	"strings"
)

// Metric names one tracked performance measurement.
type Metric string

// Tracked metrics, in display order.
const (
	MaxSpeed Metric = "max_speed"
	Vertical Metric = "vertical"
	Bench    Metric = "bench"
	Squat    Metric = "squat"
)

var tracked = []Metric{MaxSpeed, Vertical, Bench, Squat} //nolint:gochecknoglobals // fixed metric set

var columns = map[Metric]string{ //nolint:gochecknoglobals // sheet headers per metric
	MaxSpeed: "Max_Speed",
	Vertical: "Vertical",
	Bench:    "Bench",
	Squat:    "Squat",
}

// Metrics returns the tracked metrics in display order.
func Metrics() []Metric {
	out := make([]Metric, len(tracked))
	copy(out, tracked)
	return out
}

// Column is the spreadsheet header the metric is read from.
func (m Metric) Column() string { return columns[m] }

func (m Metric) String() string { return string(m) }

// Valid reports whether m is one of the tracked metrics.
func (m Metric) Valid() bool {
	_, ok := columns[m]
	return ok
}

// ParseMetric accepts either the API name ("max_speed") or the sheet
// header ("Max_Speed"), case-insensitively.
func ParseMetric(s string) (Metric, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, m := range tracked {
		if key == string(m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}
