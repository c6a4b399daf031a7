package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/internal/adapters/repository"
	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/internal/domain/stats"
	"github.com/okian/perfconsole/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func day(d int) time.Time {
	return time.Date(2024, time.April, d, 0, 0, 0, 0, time.UTC)
}

func obs(athlete, position string, d int, vals map[model.Metric]float64) model.Observation {
	values := make(map[model.Metric]model.Optional[float64], len(vals))
	for m, v := range vals {
		values[m] = model.Some(v)
	}
	return model.Observation{AthleteID: athlete, Position: position, Date: day(d), Values: values}
}

// waitForObservations polls until the store holds n observations.
func waitForObservations(ctx context.Context, svc *service.Service, n int) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := svc.GetStats(ctx)["observations"].(int); got >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func startedService(ctx context.Context, opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithWorkerCount(2), service.WithQueueSize(100)}, opts...)...)
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("Then reads and writes fail before Start", func() {
			_, err := svc.Roster(ctx, service.DateRange{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Ingest(ctx, obs("A", "WR", 1, nil))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, true)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it reports stopped and Stop is idempotent", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})

		Convey("When the store driver is unknown", func() {
			bad := service.New(service.WithStoreDriver("postgres", ""))

			Convey("Then Start fails", func() {
				So(bad.Start(ctx), ShouldNotBeNil)
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := startedService(ctx)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When the same content is ingested twice", func() {
			first, err1 := svc.Ingest(ctx, obs("A", "WR", 1, map[model.Metric]float64{model.Bench: 200}))
			second, err2 := svc.Ingest(ctx, obs("A", "WR", 1, map[model.Metric]float64{model.Bench: 200}))

			Convey("Then the second is a duplicate with the same derived id", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.Duplicate, ShouldBeFalse)
				So(second.Duplicate, ShouldBeTrue)
				So(second.ObservationID, ShouldEqual, first.ObservationID)
				So(waitForObservations(ctx, svc, 1), ShouldBeTrue)
			})
		})

		Convey("When the observation has no athlete", func() {
			_, err := svc.Ingest(ctx, model.Observation{Date: day(1)})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrMissingAthlete), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service whose workers are blocked", t, func() {
		store := &gatedStore{MemoryStore: repository.NewMemoryStore(), gate: make(chan struct{})}
		svc := service.New(service.WithStore(store), service.WithQueueSize(1), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		released := false
		release := func() {
			if !released {
				close(store.gate)
				released = true
			}
		}
		defer func() {
			release()
			_ = svc.Stop(ctx)
		}()

		var rejected model.Observation
		var lastErr error
		for i := 1; i <= 50 && lastErr == nil; i++ {
			rejected = obs("A", "WR", 1, map[model.Metric]float64{model.Squat: float64(i)})
			_, lastErr = svc.Ingest(ctx, rejected)
		}

		Convey("Then backpressure is reported", func() {
			So(errors.Is(lastErr, service.ErrBackpressure), ShouldBeTrue)
		})

		Convey("Then the rejected id is released for a retry", func() {
			release()
			accepted := false
			for i := 0; i < 300 && !accepted; i++ {
				res, err := svc.Ingest(ctx, rejected)
				if err == nil {
					accepted = !res.Duplicate
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			So(accepted, ShouldBeTrue)
		})
	})

	Convey("Given a service whose store fails its first write", t, func() {
		store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
		store.failures.Store(1)
		svc := service.New(service.WithStore(store), service.WithWorkerCount(1), service.WithQueueSize(10))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		o := obs("A", "WR", 1, map[model.Metric]float64{model.Bench: 210})
		first, err := svc.Ingest(ctx, o)
		So(err, ShouldBeNil)
		So(first.Duplicate, ShouldBeFalse)

		Convey("Then a retry is accepted and stored", func() {
			var retry service.IngestResult
			for i := 0; i < 300; i++ {
				retry, err = svc.Ingest(ctx, o)
				if err == nil && !retry.Duplicate {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			So(err, ShouldBeNil)
			So(retry.Duplicate, ShouldBeFalse)
			So(retry.ObservationID, ShouldEqual, first.ObservationID)
			So(waitForObservations(ctx, svc, 1), ShouldBeTrue)

			again, err := svc.Ingest(ctx, o)
			So(err, ShouldBeNil)
			So(again.Duplicate, ShouldBeTrue)
		})
	})
}

// flakyStore fails the first failures appends, then behaves like its
// MemoryStore.
type flakyStore struct {
	*repository.MemoryStore
	failures atomic.Int32
}

func (f *flakyStore) Append(ctx context.Context, o model.Observation) (bool, error) { //nolint:gocritic // hugeParam: matches Store
	if f.failures.Add(-1) >= 0 {
		return false, errors.New("transient disk error")
	}
	return f.MemoryStore.Append(ctx, o)
}

// gatedStore holds every Append until gate is closed.
type gatedStore struct {
	*repository.MemoryStore
	gate chan struct{}
}

func (g *gatedStore) Append(ctx context.Context, o model.Observation) (bool, error) { //nolint:gocritic // hugeParam: matches Store
	select {
	case <-g.gate:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return g.MemoryStore.Append(ctx, o)
}

func TestService_Reads(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a small roster", t, func() {
		svc := startedService(ctx, service.WithTrendWindow(2))
		defer func() { _ = svc.Stop(ctx) }()

		for _, o := range []model.Observation{
			obs("A", "LB", 1, map[model.Metric]float64{model.Bench: 190, model.Vertical: 30}),
			obs("A", "LB", 2, map[model.Metric]float64{model.Vertical: 28}),
			obs("A", "LB", 3, map[model.Metric]float64{model.Bench: 200, model.Vertical: 32}),
			obs("B", "LB", 1, map[model.Metric]float64{model.Bench: 200}),
			obs("C", "WR", 2, map[model.Metric]float64{model.Bench: 150, model.MaxSpeed: 22}),
		} {
			_, err := svc.Ingest(ctx, o)
			So(err, ShouldBeNil)
		}
		So(waitForObservations(ctx, svc, 5), ShouldBeTrue)

		Convey("When listing the roster", func() {
			roster, err := svc.Roster(ctx, service.DateRange{})

			Convey("Then every athlete is listed", func() {
				So(err, ShouldBeNil)
				So(roster.Empty, ShouldBeFalse)
				So(roster.Athletes, ShouldHaveLength, 3)
				So(roster.Positions, ShouldResemble, []string{"LB", "WR"})
			})
		})

		Convey("When reading a profile", func() {
			p, err := svc.Profile(ctx, "A", service.DateRange{})

			Convey("Then bests, ranks and a windowed history come back", func() {
				So(err, ShouldBeNil)
				So(p.Position, ShouldEqual, "LB")
				So(p.Metrics[2].Metric, ShouldEqual, model.Bench)
				So(p.Metrics[2].Best.Or(0), ShouldEqual, 200)
				So(p.Metrics[2].Rank.Or(0), ShouldEqual, 1)
				So(p.History, ShouldHaveLength, 2)
				So(p.History[0].Date, ShouldEqual, "2024-04-02")
				So(p.History[0].Directions[model.Vertical], ShouldEqual, stats.DirectionDown)
				So(p.History[0].Directions[model.Bench], ShouldEqual, stats.DirectionNone)
				So(p.History[1].Directions[model.Vertical], ShouldEqual, stats.DirectionUp)
			})

			Convey("Then directions compare against values before the window", func() {
				So(p.History[0].Values[model.Bench].Valid(), ShouldBeFalse)
				So(p.History[1].Directions[model.Bench], ShouldEqual, stats.DirectionUp)
			})
		})

		Convey("When reading an unknown profile", func() {
			_, err := svc.Profile(ctx, "nobody", service.DateRange{})
			So(errors.Is(err, stats.ErrUnknownAthlete), ShouldBeTrue)
		})

		Convey("When reading the leaderboard", func() {
			lb, err := svc.Leaderboard(ctx, model.Bench, "", 0, service.DateRange{})

			Convey("Then ties share rank 1 and the next is 3", func() {
				So(err, ShouldBeNil)
				So(lb.Entries, ShouldHaveLength, 3)
				So(lb.Entries[0].Rank, ShouldEqual, 1)
				So(lb.Entries[1].Rank, ShouldEqual, 1)
				So(lb.Entries[2].Rank, ShouldEqual, 3)
				So(lb.Entries[2].AthleteID, ShouldEqual, "C")
			})
		})

		Convey("When the leaderboard limit is out of range", func() {
			_, err := svc.Leaderboard(ctx, model.Bench, "", 1000, service.DateRange{})
			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When restricting to a date range", func() {
			lb, err := svc.Leaderboard(ctx, model.Bench, "", 0, service.DateRange{From: day(1), To: day(2)})

			Convey("Then later bests are ignored", func() {
				So(err, ShouldBeNil)
				So(lb.Entries[0].AthleteID, ShouldEqual, "B")
				So(lb.Entries[1].AthleteID, ShouldEqual, "A")
				So(lb.Entries[1].Value, ShouldEqual, 190)
			})

			Convey("Then an inverted range is rejected", func() {
				_, err := svc.Roster(ctx, service.DateRange{From: day(3), To: day(1)})
				So(errors.Is(err, service.ErrInvalidRange), ShouldBeTrue)
			})
		})

		Convey("When averaging by position", func() {
			avg, err := svc.PositionAverages(ctx, "LB", service.DateRange{})

			Convey("Then only the requested group is returned", func() {
				So(err, ShouldBeNil)
				So(avg.Positions, ShouldHaveLength, 1)
				So(avg.Positions[0].Averages[model.Bench].Or(0), ShouldEqual, 200)
				So(avg.Positions[0].Averages[model.MaxSpeed].Valid(), ShouldBeFalse)
			})
		})

		Convey("When comparing two athletes", func() {
			cmp, err := svc.Compare(ctx, "A", "C", service.DateRange{})

			Convey("Then A leads on bench", func() {
				So(err, ShouldBeNil)
				So(cmp.Deltas[2].Marker, ShouldEqual, stats.MarkerALeads)
				So(cmp.Deltas[2].Diff.Or(0), ShouldEqual, 50)
			})
		})
	})

	Convey("Given a started service with no data", t, func() {
		svc := startedService(ctx)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then reads report the empty state, not an error", func() {
			roster, err := svc.Roster(ctx, service.DateRange{})
			So(err, ShouldBeNil)
			So(roster.Empty, ShouldBeTrue)
			So(roster.Athletes, ShouldBeEmpty)

			lb, err := svc.Leaderboard(ctx, model.Squat, "", 5, service.DateRange{})
			So(err, ShouldBeNil)
			So(lb.Empty, ShouldBeTrue)
			So(lb.Entries, ShouldBeEmpty)
		})
	})
}
