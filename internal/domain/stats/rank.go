package stats

import (
	"sort"

	model "github.com/okian/perfconsole/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Rankings ranks athletes by personal best for m, highest first. Ties share
// the lowest rank of their group (1, 1, 3). Athletes without a value for m
// are left out.
func Rankings(records Records, m model.Metric) map[string]int {
	desc := values(records, m)
	sort.Sort(sort.Reverse(sort.Float64Slice(desc)))

	out := make(map[string]int, len(desc))
	for id, rec := range records {
		v, ok := rec.Best(m).Get()
		if !ok {
			continue
		}
		greater := sort.Search(len(desc), func(i int) bool { return desc[i] <= v })
		out[id] = greater + 1
	}
	return out
}

// Percentiles gives each athlete with a value for m the share of athletes
// whose best is at or below theirs, times 100.
func Percentiles(records Records, m model.Metric) map[string]float64 {
	asc := values(records, m)
	sort.Float64s(asc)
	n := float64(len(asc))

	out := make(map[string]float64, len(asc))
	for id, rec := range records {
		v, ok := rec.Best(m).Get()
		if !ok {
			continue
		}
		atOrBelow := sort.Search(len(asc), func(i int) bool { return asc[i] > v })
		out[id] = float64(atOrBelow) / n * 100
	}
	return out
}

// AthleticismScore is the mean of the record's available percentiles,
// truncated. It fails with ErrNoScore when no percentile is available.
func AthleticismScore(rec Record) (int, error) {
	ps := make([]float64, 0, len(rec.Percentiles))
	for _, m := range model.Metrics() {
		if p, ok := rec.Percentile(m); ok {
			ps = append(ps, p)
		}
	}
	if len(ps) == 0 {
		return 0, ErrNoScore
	}
	return int(stat.Mean(ps, nil)), nil
}

func values(records Records, m model.Metric) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if v, ok := rec.Best(m).Get(); ok {
			out = append(out, v)
		}
	}
	return out
}
