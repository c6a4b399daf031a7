package seed

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Metric names as the API accepts them.
var metricNames = []string{"max_speed", "vertical", "bench", "squat"} //nolint:gochecknoglobals // fixed set

var positions = []string{"QB", "RB", "WR", "TE", "OL", "DL", "LB", "DB"} //nolint:gochecknoglobals // position mix

// metricRange is the plausible spread for a metric and how much an athlete
// improves per session.
type metricRange struct {
	min, max, step float64
}

var ranges = map[string]metricRange{ //nolint:gochecknoglobals // lookup table
	"max_speed": {min: 16, max: 23, step: 0.2},
	"vertical":  {min: 22, max: 42, step: 0.5},
	"bench":     {min: 135, max: 405, step: 5},
	"squat":     {min: 225, max: 600, step: 10},
}

const sessionSpacing = 7 * 24 * time.Hour

// Generate builds Athletes × Sessions observations. Each athlete keeps one
// position and drifts around a baseline from session to session. Output is
// ordered by athlete then session.
func Generate(cfg *Config) []Observation {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic data
	start := cfg.Start
	if start.IsZero() {
		start = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	out := make([]Observation, 0, cfg.Athletes*cfg.Sessions)
	for a := 0; a < cfg.Athletes; a++ {
		athlete := uuid.NewString()
		position := positions[rng.IntN(len(positions))]
		base := make(map[string]float64, len(metricNames))
		for _, m := range metricNames {
			r := ranges[m]
			base[m] = r.min + rng.Float64()*(r.max-r.min)*0.8
		}
		height := round(68 + rng.Float64()*10)
		weight := round(170 + rng.Float64()*120)

		for s := 0; s < cfg.Sessions; s++ {
			o := Observation{
				ObservationID: uuid.NewString(),
				AthleteID:     athlete,
				Position:      position,
				Date:          start.Add(time.Duration(s) * sessionSpacing).Format("2006-01-02"),
				Metrics:       make(map[string]*float64, len(metricNames)),
				Height:        &height,
			}
			w := weight + float64(s)
			o.Weight = &w
			for _, m := range metricNames {
				if rng.Float64() < cfg.MissingRate {
					o.Metrics[m] = nil
					continue
				}
				r := ranges[m]
				v := base[m] + float64(s)*r.step + (rng.Float64()-0.5)*r.step*2
				v = round(math.Min(math.Max(v, r.min), r.max))
				o.Metrics[m] = &v
			}
			out = append(out, o)
		}
	}
	return out
}

// round keeps one decimal so ties occur at a realistic rate.
func round(v float64) float64 {
	return math.Round(v*10) / 10
}
