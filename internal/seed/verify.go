package seed

import "fmt"

// VerifyMinRank checks a leaderboard prefix against the min-rank rule:
// values never increase, equal values share a rank, and the first entry of
// each new value is ranked by its 1-based position.
func VerifyMinRank(entries []Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first entry %s has rank %d", ErrRankInvariant, e.AthleteID, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Value > prev.Value:
			return fmt.Errorf("%w: entry %d (%v) above entry %d (%v)", ErrRankInvariant, i+1, e.Value, i, prev.Value)
		case e.Value == prev.Value && e.Rank != prev.Rank:
			return fmt.Errorf("%w: tie at %v split into ranks %d and %d", ErrRankInvariant, e.Value, prev.Rank, e.Rank)
		case e.Value < prev.Value && e.Rank != i+1:
			return fmt.Errorf("%w: entry %d after a tie has rank %d", ErrRankInvariant, i+1, e.Rank)
		}
	}
	return nil
}
