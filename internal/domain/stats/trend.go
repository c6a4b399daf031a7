package stats

import (
	model "github.com/okian/perfconsole/internal/domain/model"
)

// Direction marks how a value moved against the previous valid value.
type Direction string

// Trend directions.
const (
	DirectionNone Direction = "none"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Trend walks observations already ordered by date and returns one
// direction per observation. Missing values get DirectionNone and are
// skipped over: each value is compared with the latest earlier value that
// was present.
func Trend(observations []model.Observation, m model.Metric) []Direction {
	out := make([]Direction, len(observations))
	var prev model.Optional[float64]
	for i, o := range observations {
		v, ok := o.Value(m).Get()
		if !ok {
			out[i] = DirectionNone
			continue
		}
		p, hasPrev := prev.Get()
		switch {
		case !hasPrev:
			out[i] = DirectionNone
		case v > p:
			out[i] = DirectionUp
		case v < p:
			out[i] = DirectionDown
		default:
			out[i] = DirectionFlat
		}
		prev = model.Some(v)
	}
	return out
}
