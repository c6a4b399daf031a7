package stats

import (
	"fmt"
	"sort"

	model "github.com/okian/perfconsole/internal/domain/model"
)

// Table is one full engine pass over a snapshot.
type Table struct {
	snap    model.Snapshot
	records Records
	ids     []string
}

// Standing is one leaderboard row.
type Standing struct {
	Rank       int
	AthleteID  string
	Position   string
	Value      float64
	Percentile float64 // team-wide percentile for the metric
}

// Compute builds personal bests and fills ranks, percentiles and the
// athleticism score for every athlete.
func Compute(snap model.Snapshot) Table {
	records := PersonalBests(snap)
	for _, m := range model.Metrics() {
		ranks := Rankings(records, m)
		pcts := Percentiles(records, m)
		for id, rec := range records {
			if r, ok := ranks[id]; ok {
				rec.Ranks[m] = r
			}
			if p, ok := pcts[id]; ok {
				rec.Percentiles[m] = p
			}
		}
	}
	for id, rec := range records {
		if score, err := AthleticismScore(rec); err == nil {
			rec.Score = model.Some(score)
			records[id] = rec
		}
	}
	return Table{snap: snap, records: records, ids: snap.Athletes()}
}

// Empty reports the "no data" state.
func (t Table) Empty() bool { return t.snap.IsEmpty() }

// Snapshot is the snapshot the table was computed from.
func (t Table) Snapshot() model.Snapshot { return t.snap }

// Records returns every athlete record, sorted by athlete id.
func (t Table) Records() []Record {
	out := make([]Record, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.records[id])
	}
	return out
}

// Athlete looks up one record.
func (t Table) Athlete(id string) (Record, error) {
	rec, ok := t.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownAthlete, id)
	}
	return rec, nil
}

// Compare runs HeadToHead for two known athletes.
func (t Table) Compare(a, b string) ([]Delta, error) {
	ra, err := t.Athlete(a)
	if err != nil {
		return nil, err
	}
	rb, err := t.Athlete(b)
	if err != nil {
		return nil, err
	}
	return HeadToHead(ra, rb), nil
}

// PositionAverages averages personal bests per position.
func (t Table) PositionAverages() map[string]map[model.Metric]model.Optional[float64] {
	return PositionAverages(t.records)
}

// Leaderboard ranks athletes with a value for m, optionally restricted to
// one position. Ranks are min-ranks within the filtered population. Rows
// with equal values are ordered by athlete id. A limit <= 0 returns all rows.
func (t Table) Leaderboard(m model.Metric, position string, limit int) ([]Standing, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownMetric, m)
	}
	pool := make(Records)
	for id, rec := range t.records {
		if position != "" && rec.Position != position {
			continue
		}
		if rec.Best(m).Valid() {
			pool[id] = rec
		}
	}
	ranks := Rankings(pool, m)

	out := make([]Standing, 0, len(pool))
	for id, rec := range pool {
		v, _ := rec.Best(m).Get()
		p, _ := rec.Percentile(m)
		out = append(out, Standing{
			Rank:       ranks[id],
			AthleteID:  id,
			Position:   rec.Position,
			Value:      v,
			Percentile: p,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].AthleteID < out[j].AthleteID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
