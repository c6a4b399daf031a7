package model

import (
	"sort"
	"time"
)

// Snapshot is an immutable, ordered set of observations for one
// processing pass. The zero value is an empty snapshot.
type Snapshot struct {
	obs []Observation
}

// NewSnapshot copies obs into a new snapshot, keeping their order.
func NewSnapshot(obs []Observation) Snapshot {
	cp := make([]Observation, len(obs))
	for i, o := range obs {
		cp[i] = o.clone()
	}
	return Snapshot{obs: cp}
}

// Len is the number of observations.
func (s Snapshot) Len() int { return len(s.obs) }

// IsEmpty reports the "no data" state.
func (s Snapshot) IsEmpty() bool { return len(s.obs) == 0 }

// Observations returns a deep copy of the observations in load order.
func (s Snapshot) Observations() []Observation {
	out := make([]Observation, len(s.obs))
	for i, o := range s.obs {
		out[i] = o.clone()
	}
	return out
}

// Athletes returns the distinct athlete ids, sorted.
func (s Snapshot) Athletes() []string {
	seen := make(map[string]struct{})
	for _, o := range s.obs {
		seen[o.AthleteID] = struct{}{}
	}
	return sortedKeys(seen)
}

// Positions returns the distinct non-empty positions, sorted.
func (s Snapshot) Positions() []string {
	seen := make(map[string]struct{})
	for _, o := range s.obs {
		if o.Position != "" {
			seen[o.Position] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Has reports whether the athlete has at least one observation.
func (s Snapshot) Has(athleteID string) bool {
	for _, o := range s.obs {
		if o.AthleteID == athleteID {
			return true
		}
	}
	return false
}

// History returns one athlete's observations ordered by date. Observations
// sharing a date keep their load order.
func (s Snapshot) History(athleteID string) []Observation {
	var out []Observation
	for _, o := range s.obs {
		if o.AthleteID == athleteID {
			out = append(out, o.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Between keeps observations dated within [from, to]. A zero bound is open.
func (s Snapshot) Between(from, to time.Time) Snapshot {
	out := make([]Observation, 0, len(s.obs))
	for _, o := range s.obs {
		if !from.IsZero() && o.Date.Before(from) {
			continue
		}
		if !to.IsZero() && o.Date.After(to) {
			continue
		}
		out = append(out, o)
	}
	return Snapshot{obs: out}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
