package stats_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	model "github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func obs(athlete, position string, d int, vals map[model.Metric]float64) model.Observation {
	values := make(map[model.Metric]model.Optional[float64], len(vals))
	for m, v := range vals {
		values[m] = model.Some(v)
	}
	return model.Observation{AthleteID: athlete, Position: position, Date: day(d), Values: values}
}

func benchSnapshot() model.Snapshot {
	return model.NewSnapshot([]model.Observation{
		obs("A", "LB", 1, map[model.Metric]float64{model.Bench: 180}),
		obs("A", "LB", 2, map[model.Metric]float64{model.Bench: 200}),
		obs("B", "LB", 1, map[model.Metric]float64{model.Bench: 200}),
		obs("C", "WR", 1, map[model.Metric]float64{model.Bench: 150}),
	})
}

func TestPersonalBests(t *testing.T) {
	Convey("Given observations for several athletes", t, func() {
		snap := model.NewSnapshot([]model.Observation{
			obs("A", "WR", 1, map[model.Metric]float64{model.Bench: 180, model.Vertical: 30}),
			obs("A", "TE", 3, map[model.Metric]float64{model.Bench: 175}),
			obs("A", "WR", 2, map[model.Metric]float64{model.Bench: 190}),
			{AthleteID: "B", Position: "QB", Date: day(1), Values: map[model.Metric]model.Optional[float64]{
				model.Bench: model.None[float64](),
			}},
		})
		records := stats.PersonalBests(snap)

		Convey("Then the best is the max of present values", func() {
			So(records, ShouldHaveLength, 2)
			So(records["A"].Best(model.Bench).Or(0), ShouldEqual, 190)
			So(records["A"].Best(model.Vertical).Or(0), ShouldEqual, 30)
			So(records["A"].Observations, ShouldEqual, 3)
		})

		Convey("Then a metric with no values stays unavailable, not zero", func() {
			So(records["B"].Best(model.Bench).Valid(), ShouldBeFalse)
			So(records["A"].Best(model.Squat).Valid(), ShouldBeFalse)
		})

		Convey("Then position comes from the latest observation", func() {
			So(records["A"].Position, ShouldEqual, "TE")
			So(records["A"].Latest.Date, ShouldEqual, day(3))
		})

		Convey("Then running twice yields identical records", func() {
			again := stats.PersonalBests(snap)
			diff := cmp.Diff(records, again,
				cmp.AllowUnexported(model.Optional[float64]{}, model.Optional[string]{}, model.Optional[int]{}),
				cmpopts.EquateEmpty())
			So(diff, ShouldBeEmpty)
		})
	})

	Convey("Given an empty snapshot", t, func() {
		table := stats.Compute(model.Snapshot{})

		Convey("Then the table reports the empty state without error", func() {
			So(table.Empty(), ShouldBeTrue)
			So(table.Records(), ShouldBeEmpty)
			_, err := table.Athlete("A")
			So(errors.Is(err, stats.ErrUnknownAthlete), ShouldBeTrue)
		})
	})
}

func TestRankingsAndPercentiles(t *testing.T) {
	Convey("Given A and B tied at 200 and C at 150", t, func() {
		records := stats.PersonalBests(benchSnapshot())
		ranks := stats.Rankings(records, model.Bench)
		pcts := stats.Percentiles(records, model.Bench)

		Convey("Then ties share the min rank and the next rank skips", func() {
			So(ranks, ShouldResemble, map[string]int{"A": 1, "B": 1, "C": 3})
		})

		Convey("Then percentiles are 100, 100 and one third", func() {
			So(pcts["A"], ShouldEqual, 100)
			So(pcts["B"], ShouldEqual, 100)
			So(int(pcts["C"]), ShouldEqual, 33)
		})

		Convey("Then rank group sizes sum to athletes with a value", func() {
			counts := make(map[int]int)
			for _, r := range ranks {
				counts[r]++
			}
			total := 0
			for _, c := range counts {
				total += c
			}
			So(total, ShouldEqual, 3)
		})

		Convey("Then athletes without the metric are unranked", func() {
			So(stats.Rankings(records, model.Squat), ShouldBeEmpty)
			So(stats.Percentiles(records, model.Squat), ShouldBeEmpty)
		})
	})

	Convey("Given a single athlete with a value", t, func() {
		records := stats.PersonalBests(model.NewSnapshot([]model.Observation{
			obs("solo", "QB", 1, map[model.Metric]float64{model.MaxSpeed: 21.3}),
		}))

		Convey("Then their percentile is 100", func() {
			So(stats.Percentiles(records, model.MaxSpeed)["solo"], ShouldEqual, 100)
		})
	})

	Convey("Given distinct values", t, func() {
		records := stats.PersonalBests(model.NewSnapshot([]model.Observation{
			obs("w", "", 1, map[model.Metric]float64{model.Squat: 300}),
			obs("x", "", 1, map[model.Metric]float64{model.Squat: 400}),
			obs("y", "", 1, map[model.Metric]float64{model.Squat: 500}),
			obs("z", "", 1, map[model.Metric]float64{model.Squat: 600}),
		}))
		pcts := stats.Percentiles(records, model.Squat)

		Convey("Then the best is 100 and the worst is 100/n", func() {
			So(pcts["z"], ShouldEqual, 100)
			So(pcts["w"], ShouldEqual, 25)
		})
	})

	Convey("Given a missing value inserted for one athlete", t, func() {
		base := benchSnapshot()
		withMissing := model.NewSnapshot(append(base.Observations(), model.Observation{
			AthleteID: "D", Position: "WR", Date: day(4),
			Values: map[model.Metric]model.Optional[float64]{model.Bench: model.Measure(math.NaN())},
		}))

		Convey("Then no other athlete's rank or percentile changes", func() {
			before := stats.PersonalBests(base)
			after := stats.PersonalBests(withMissing)
			So(stats.Rankings(after, model.Bench), ShouldResemble, stats.Rankings(before, model.Bench))
			So(stats.Percentiles(after, model.Bench), ShouldResemble, stats.Percentiles(before, model.Bench))
		})
	})
}

func TestAthleticismScore(t *testing.T) {
	Convey("Given percentiles of 80, 60, 90 and 70", t, func() {
		rec := stats.Record{Percentiles: map[model.Metric]float64{
			model.MaxSpeed: 80, model.Vertical: 60, model.Bench: 90, model.Squat: 70,
		}}

		Convey("Then the score is 75", func() {
			score, err := stats.AthleticismScore(rec)
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 75)
		})
	})

	Convey("Given a fractional mean", t, func() {
		rec := stats.Record{Percentiles: map[model.Metric]float64{model.Bench: 100, model.Squat: 33.34}}

		Convey("Then the score is truncated", func() {
			score, err := stats.AthleticismScore(rec)
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 66)
		})
	})

	Convey("Given no percentiles at all", t, func() {
		_, err := stats.AthleticismScore(stats.Record{})

		Convey("Then the score is undefined rather than zero", func() {
			So(errors.Is(err, stats.ErrNoScore), ShouldBeTrue)
		})
	})
}

func TestTrend(t *testing.T) {
	Convey("Given vertical values 30, missing, 32", t, func() {
		history := []model.Observation{
			obs("X", "WR", 1, map[model.Metric]float64{model.Vertical: 30}),
			obs("X", "WR", 2, nil),
			obs("X", "WR", 3, map[model.Metric]float64{model.Vertical: 32}),
		}

		Convey("Then directions are none, none, up", func() {
			So(stats.Trend(history, model.Vertical), ShouldResemble,
				[]stats.Direction{stats.DirectionNone, stats.DirectionNone, stats.DirectionUp})
		})
	})

	Convey("Given decreasing then flat values", t, func() {
		history := []model.Observation{
			obs("X", "WR", 1, map[model.Metric]float64{model.Bench: 200}),
			obs("X", "WR", 2, map[model.Metric]float64{model.Bench: 190}),
			obs("X", "WR", 3, map[model.Metric]float64{model.Bench: 190}),
		}

		Convey("Then directions are none, down, flat", func() {
			So(stats.Trend(history, model.Bench), ShouldResemble,
				[]stats.Direction{stats.DirectionNone, stats.DirectionDown, stats.DirectionFlat})
		})
	})

	Convey("Given no observations", t, func() {
		So(stats.Trend(nil, model.Bench), ShouldBeEmpty)
	})
}

func TestHeadToHeadAndAverages(t *testing.T) {
	Convey("Given two computed athletes", t, func() {
		table := stats.Compute(model.NewSnapshot([]model.Observation{
			obs("A", "WR", 1, map[model.Metric]float64{model.Bench: 200, model.Squat: 300, model.Vertical: 30}),
			obs("B", "WR", 1, map[model.Metric]float64{model.Bench: 210, model.Squat: 300, model.MaxSpeed: 20}),
			obs("C", "QB", 1, map[model.Metric]float64{model.Bench: 150}),
		}))

		Convey("When comparing them", func() {
			deltas, err := table.Compare("A", "B")
			So(err, ShouldBeNil)
			byMetric := make(map[model.Metric]stats.Delta)
			for _, d := range deltas {
				byMetric[d.Metric] = d
			}

			Convey("Then markers follow the sign of A minus B", func() {
				So(deltas, ShouldHaveLength, 4)
				So(byMetric[model.Bench].Marker, ShouldEqual, stats.MarkerBLeads)
				So(byMetric[model.Bench].Diff.Or(0), ShouldEqual, -10)
				So(byMetric[model.Squat].Marker, ShouldEqual, stats.MarkerEqual)
			})

			Convey("Then a one-sided metric has no delta", func() {
				So(byMetric[model.Vertical].Diff.Valid(), ShouldBeFalse)
				So(byMetric[model.Vertical].Marker, ShouldBeEmpty)
				So(byMetric[model.MaxSpeed].Diff.Valid(), ShouldBeFalse)
			})
		})

		Convey("When comparing with an unknown athlete", func() {
			_, err := table.Compare("A", "nobody")
			So(errors.Is(err, stats.ErrUnknownAthlete), ShouldBeTrue)
		})

		Convey("When averaging by position", func() {
			avg := table.PositionAverages()

			Convey("Then missing values are excluded from each mean", func() {
				So(avg["WR"][model.Bench].Or(0), ShouldEqual, 205)
				So(avg["WR"][model.Vertical].Or(0), ShouldEqual, 30)
				So(avg["QB"][model.Squat].Valid(), ShouldBeFalse)
			})
		})

		Convey("Then scores are filled from percentiles", func() {
			rec, err := table.Athlete("C")
			So(err, ShouldBeNil)
			p, ok := rec.Percentile(model.Bench)
			So(ok, ShouldBeTrue)
			So(rec.Score.Or(-1), ShouldEqual, int(p))
		})
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given a computed table", t, func() {
		table := stats.Compute(model.NewSnapshot([]model.Observation{
			obs("d", "LB", 1, map[model.Metric]float64{model.Bench: 200}),
			obs("a", "LB", 1, map[model.Metric]float64{model.Bench: 200}),
			obs("c", "WR", 1, map[model.Metric]float64{model.Bench: 250}),
			obs("b", "LB", 1, map[model.Metric]float64{model.Bench: 150}),
			obs("e", "LB", 1, map[model.Metric]float64{model.Squat: 300}),
		}))

		Convey("When listing the whole team", func() {
			rows, err := table.Leaderboard(model.Bench, "", 0)
			So(err, ShouldBeNil)

			Convey("Then ties share a rank and order by id", func() {
				got := make([]string, 0, len(rows))
				ranks := make([]int, 0, len(rows))
				for _, r := range rows {
					got = append(got, r.AthleteID)
					ranks = append(ranks, r.Rank)
				}
				So(got, ShouldResemble, []string{"c", "a", "d", "b"})
				So(ranks, ShouldResemble, []int{1, 2, 2, 4})
			})
		})

		Convey("When filtering by position with a limit", func() {
			rows, err := table.Leaderboard(model.Bench, "LB", 2)
			So(err, ShouldBeNil)

			Convey("Then ranks are within the position", func() {
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[1].Rank, ShouldEqual, 1)
			})
		})

		Convey("When the metric is unknown", func() {
			_, err := table.Leaderboard(model.Metric("deadlift"), "", 5)
			So(errors.Is(err, model.ErrUnknownMetric), ShouldBeTrue)
		})
	})
}
