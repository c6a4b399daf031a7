package stats

import (
	model "github.com/okian/perfconsole/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Head-to-head markers.
const (
	MarkerALeads = ">"
	MarkerBLeads = "<"
	MarkerEqual  = "="
)

// Delta compares two athletes on one metric.
type Delta struct {
	Metric model.Metric
	A      model.Optional[float64]
	B      model.Optional[float64]
	Diff   model.Optional[float64] // A - B, absent if either side is
	Marker string                  // empty when Diff is absent
}

// HeadToHead returns one delta per tracked metric, in display order.
func HeadToHead(a, b Record) []Delta {
	out := make([]Delta, 0, len(model.Metrics()))
	for _, m := range model.Metrics() {
		d := Delta{Metric: m, A: a.Best(m), B: b.Best(m)}
		av, aok := d.A.Get()
		bv, bok := d.B.Get()
		if aok && bok {
			diff := av - bv
			d.Diff = model.Some(diff)
			switch {
			case diff > 0:
				d.Marker = MarkerALeads
			case diff < 0:
				d.Marker = MarkerBLeads
			default:
				d.Marker = MarkerEqual
			}
		}
		out = append(out, d)
	}
	return out
}

// PositionAverages is the mean personal best per position and metric.
// Athletes without a value for a metric don't count toward its mean, and
// athletes with no position are left out.
func PositionAverages(records Records) map[string]map[model.Metric]model.Optional[float64] {
	grouped := make(map[string]map[model.Metric][]float64)
	for _, rec := range records {
		if rec.Position == "" {
			continue
		}
		byMetric, ok := grouped[rec.Position]
		if !ok {
			byMetric = make(map[model.Metric][]float64)
			grouped[rec.Position] = byMetric
		}
		for _, m := range model.Metrics() {
			if v, ok := rec.Best(m).Get(); ok {
				byMetric[m] = append(byMetric[m], v)
			}
		}
	}

	out := make(map[string]map[model.Metric]model.Optional[float64], len(grouped))
	for pos, byMetric := range grouped {
		avg := make(map[model.Metric]model.Optional[float64], len(model.Metrics()))
		for _, m := range model.Metrics() {
			if xs := byMetric[m]; len(xs) > 0 {
				avg[m] = model.Some(stat.Mean(xs, nil))
			} else {
				avg[m] = model.None[float64]()
			}
		}
		out[pos] = avg
	}
	return out
}
