// Package stats computes personal bests, rankings, percentiles, scores,
// trends and head-to-head deltas over an observation snapshot.
//
// Every function here is pure: it reads the snapshot or records it is
// given and returns fresh values. Recomputing on the same input yields
// the same output.
package stats

import (
	model "github.com/okian/perfconsole/internal/domain/model"
)

// Record is the per-athlete aggregate derived from all of that athlete's
// observations.
type Record struct {
	AthleteID    string
	Position     string // position on the latest observation
	Observations int

	Bests       map[model.Metric]model.Optional[float64]
	Ranks       map[model.Metric]int     // absent key: unranked for that metric
	Percentiles map[model.Metric]float64 // absent key: no value for that metric
	Score       model.Optional[int]

	Latest   model.Observation      // most recent observation
	ImageURL model.Optional[string] // last non-empty image reference
}

// Best returns the personal best for m.
func (r Record) Best(m model.Metric) model.Optional[float64] {
	return r.Bests[m]
}

// Rank returns the rank for m and whether the athlete is ranked.
func (r Record) Rank(m model.Metric) (int, bool) {
	rank, ok := r.Ranks[m]
	return rank, ok
}

// Percentile returns the percentile for m and whether it is defined.
func (r Record) Percentile(m model.Metric) (float64, bool) {
	p, ok := r.Percentiles[m]
	return p, ok
}

// Records maps athlete id to its aggregate.
type Records map[string]Record

// PersonalBests groups the snapshot by athlete and takes, per metric, the
// maximum non-missing value. A metric with no value stays absent.
func PersonalBests(snap model.Snapshot) Records {
	out := make(Records)
	for _, id := range snap.Athletes() {
		history := snap.History(id)
		rec := Record{
			AthleteID:    id,
			Observations: len(history),
			Bests:        make(map[model.Metric]model.Optional[float64], len(model.Metrics())),
			Ranks:        make(map[model.Metric]int),
			Percentiles:  make(map[model.Metric]float64),
		}
		for _, o := range history {
			for _, m := range model.Metrics() {
				v, ok := o.Value(m).Get()
				if !ok {
					continue
				}
				if best, has := rec.Bests[m].Get(); !has || v > best {
					rec.Bests[m] = model.Some(v)
				}
			}
			if url := o.ImageURL.Or(""); url != "" {
				rec.ImageURL = model.Some(url)
			}
		}
		if n := len(history); n > 0 {
			rec.Latest = history[n-1]
			rec.Position = rec.Latest.Position
		}
		out[id] = rec
	}
	return out
}
