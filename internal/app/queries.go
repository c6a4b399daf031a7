package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/internal/domain/stats"
	"github.com/okian/perfconsole/internal/domain/types"
	"github.com/okian/perfconsole/pkg/metrics"
)

// DateRange optionally restricts reads to observations in [From, To].
// Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Validate rejects an inverted range.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return fmt.Errorf("%w: to %s is before from %s", ErrInvalidRange,
			r.To.Format(types.DateLayout), r.From.Format(types.DateLayout))
	}
	return nil
}

// table takes a snapshot, applies the range pre-filter and runs one full
// engine pass over it.
func (s *Service) table(ctx context.Context, rng DateRange) (stats.Table, error) {
	s.mu.RLock()
	started := s.started
	store := s.store
	s.mu.RUnlock()
	if !started {
		return stats.Table{}, ErrNotStarted
	}
	if err := rng.Validate(); err != nil {
		return stats.Table{}, err
	}

	snap, err := store.Snapshot(ctx)
	if err != nil {
		return stats.Table{}, fmt.Errorf("snapshot: %w", err)
	}
	if !rng.From.IsZero() || !rng.To.IsZero() {
		snap = snap.Between(rng.From, rng.To)
	}

	start := time.Now()
	t := stats.Compute(snap)
	metrics.RecordEngineLatency("compute", metrics.Since(start))
	metrics.UpdateSnapshotSize(snap.Len(), len(t.Records()))
	if t.Empty() {
		metrics.RecordEmptySnapshotRead()
	}
	return t, nil
}

// Roster lists every athlete with their score.
func (s *Service) Roster(ctx context.Context, rng DateRange) (types.Roster, error) {
	t, err := s.table(ctx, rng)
	if err != nil {
		return types.Roster{}, err
	}
	out := types.Roster{
		Empty:     t.Empty(),
		Athletes:  make([]types.AthleteSummary, 0),
		Positions: t.Snapshot().Positions(),
	}
	for _, rec := range t.Records() {
		out.Athletes = append(out.Athletes, types.AthleteSummary{
			AthleteID:    rec.AthleteID,
			Position:     rec.Position,
			Observations: rec.Observations,
			Score:        rec.Score,
		})
	}
	return out, nil
}

// Profile returns one athlete's bests, standings and recent history.
func (s *Service) Profile(ctx context.Context, athleteID string, rng DateRange) (types.Profile, error) {
	t, err := s.table(ctx, rng)
	if err != nil {
		return types.Profile{}, err
	}
	rec, err := t.Athlete(athleteID)
	if err != nil {
		return types.Profile{}, err
	}

	p := types.Profile{
		AthleteID: rec.AthleteID,
		Position:  rec.Position,
		Height:    rec.Latest.Height,
		Weight:    rec.Latest.Weight,
		BodyFat:   rec.Latest.BodyFat,
		Wingspan:  rec.Latest.Wingspan,
		ImageURL:  rec.ImageURL,
		Score:     rec.Score,
	}
	for _, m := range model.Metrics() {
		p.Metrics = append(p.Metrics, types.NewMetricStanding(rec, m))
	}

	start := time.Now()
	p.History = s.history(t.Snapshot().History(athleteID))
	metrics.RecordEngineLatency("trend", metrics.Since(start))
	return p, nil
}

// history keeps the last trendWindow observations. Directions come from the
// whole history, so a value is compared with the latest earlier value even
// when that value falls outside the window.
func (s *Service) history(all []model.Observation) []types.HistoryRow {
	offset := 0
	if len(all) > s.trendWindow {
		offset = len(all) - s.trendWindow
	}
	recent := all[offset:]
	rows := make([]types.HistoryRow, len(recent))
	for i, o := range recent {
		rows[i] = types.HistoryRow{
			Date:       o.Date.Format(types.DateLayout),
			Values:     make(map[model.Metric]model.Optional[float64], len(model.Metrics())),
			Directions: make(map[model.Metric]stats.Direction, len(model.Metrics())),
		}
		for _, m := range model.Metrics() {
			rows[i].Values[m] = o.Value(m)
		}
	}
	for _, m := range model.Metrics() {
		for i, d := range stats.Trend(all, m)[offset:] {
			rows[i].Directions[m] = d
		}
	}
	return rows
}

// Leaderboard ranks athletes on one metric. limit 0 means the configured
// maximum; a limit above it is rejected.
func (s *Service) Leaderboard(ctx context.Context, m model.Metric, position string, limit int, rng DateRange) (types.Leaderboard, error) {
	if limit < 0 || limit > s.maxLimit {
		return types.Leaderboard{}, fmt.Errorf("%w: %d (max %d)", ErrInvalidLimit, limit, s.maxLimit)
	}
	if limit == 0 {
		limit = s.maxLimit
	}
	t, err := s.table(ctx, rng)
	if err != nil {
		return types.Leaderboard{}, err
	}

	start := time.Now()
	rows, err := t.Leaderboard(m, position, limit)
	metrics.RecordEngineLatency("leaderboard", metrics.Since(start))
	if err != nil {
		return types.Leaderboard{}, err
	}
	out := types.Leaderboard{
		Metric:   m,
		Position: position,
		Empty:    t.Empty(),
		Entries:  make([]types.Entry, 0, len(rows)),
	}
	for _, r := range rows {
		out.Entries = append(out.Entries, types.NewEntry(r))
	}
	return out, nil
}

// PositionAverages averages personal bests per position; a non-empty
// position keeps only that group.
func (s *Service) PositionAverages(ctx context.Context, position string, rng DateRange) (types.PositionAverages, error) {
	t, err := s.table(ctx, rng)
	if err != nil {
		return types.PositionAverages{}, err
	}

	start := time.Now()
	avg := t.PositionAverages()
	metrics.RecordEngineLatency("position_averages", metrics.Since(start))

	out := types.PositionAverages{Empty: t.Empty(), Positions: make([]types.PositionAverage, 0, len(avg))}
	for pos, byMetric := range avg {
		if position != "" && pos != position {
			continue
		}
		out.Positions = append(out.Positions, types.PositionAverage{Position: pos, Averages: byMetric})
	}
	sort.Slice(out.Positions, func(i, j int) bool { return out.Positions[i].Position < out.Positions[j].Position })
	return out, nil
}

// Compare returns head-to-head deltas for two athletes.
func (s *Service) Compare(ctx context.Context, a, b string, rng DateRange) (types.Comparison, error) {
	t, err := s.table(ctx, rng)
	if err != nil {
		return types.Comparison{}, err
	}
	deltas, err := t.Compare(a, b)
	if err != nil {
		return types.Comparison{}, err
	}
	out := types.Comparison{A: a, B: b, Deltas: make([]types.DeltaRow, 0, len(deltas))}
	for _, d := range deltas {
		out.Deltas = append(out.Deltas, types.NewDeltaRow(d))
	}
	return out, nil
}
