// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// observationNamespace seeds deterministic observation ids.
var observationNamespace = uuid.MustParse("6f1c2a4e-93d5-4b8e-a7f0-2c51d8e3b9a4") //nolint:gochecknoglobals // constant namespace

// Observation is one dated performance measurement for one athlete.
// Observations are immutable once loaded.
type Observation struct {
	ID        string
	AthleteID string
	Position  string
	Date      time.Time
	Values    map[Metric]Optional[float64]

	Height   Optional[float64] // inches
	Weight   Optional[float64] // lbs
	BodyFat  Optional[float64] // percent
	Wingspan Optional[float64] // inches
	ImageURL Optional[string]
}

// Value returns the observation's value for m; absent if never recorded.
func (o Observation) Value(m Metric) Optional[float64] {
	return o.Values[m]
}

// Validate checks the fields every observation must carry.
func (o Observation) Validate() error {
	if strings.TrimSpace(o.AthleteID) == "" {
		return ErrMissingAthlete
	}
	if o.Date.IsZero() {
		return fmt.Errorf("%w: zero date for athlete %q", ErrInvalidDate, o.AthleteID)
	}
	return nil
}

// clone copies the Values map so the caller's map can't leak into a snapshot.
func (o Observation) clone() Observation {
	o.Values = maps.Clone(o.Values)
	return o
}

// ObservationID derives a stable id from the observation's content, so the
// same measurement posted twice maps to the same id.
func ObservationID(o Observation) string {
	var b strings.Builder
	b.WriteString(o.AthleteID)
	b.WriteByte('|')
	b.WriteString(o.Position)
	b.WriteByte('|')
	b.WriteString(o.Date.UTC().Format(time.RFC3339))
	for _, m := range tracked {
		b.WriteByte('|')
		writeOptional(&b, o.Value(m))
	}
	for _, attr := range []Optional[float64]{o.Height, o.Weight, o.BodyFat, o.Wingspan} {
		b.WriteByte('|')
		writeOptional(&b, attr)
	}
	b.WriteByte('|')
	b.WriteString(o.ImageURL.Or(""))
	return uuid.NewSHA1(observationNamespace, []byte(b.String())).String()
}

func writeOptional(b *strings.Builder, v Optional[float64]) {
	f, ok := v.Get()
	if !ok {
		b.WriteByte('-')
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}
