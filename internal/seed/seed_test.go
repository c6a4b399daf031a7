package seed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/okian/perfconsole/internal/adapters/http/api"
	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := &Config{Athletes: 10, Sessions: 4, MissingRate: 0.05, Seed: 7}

		Convey("When generating", func() {
			obs := Generate(cfg)

			Convey("Then every athlete gets one observation per session", func() {
				So(obs, ShouldHaveLength, 40)
				perAthlete := map[string]int{}
				ids := map[string]struct{}{}
				for _, o := range obs {
					perAthlete[o.AthleteID]++
					ids[o.ObservationID] = struct{}{}
					So(o.Metrics, ShouldHaveLength, len(metricNames))
					So(positions, ShouldContain, o.Position)
				}
				So(perAthlete, ShouldHaveLength, 10)
				for _, n := range perAthlete {
					So(n, ShouldEqual, 4)
				}
				So(ids, ShouldHaveLength, 40)
			})

			Convey("Then sessions are a week apart and values stay in range", func() {
				So(obs[0].Date, ShouldEqual, "2024-01-01")
				So(obs[1].Date, ShouldEqual, "2024-01-08")
				for _, o := range obs {
					for m, v := range o.Metrics {
						if v == nil {
							continue
						}
						So(*v, ShouldBeBetweenOrEqual, ranges[m].min, ranges[m].max)
					}
				}
			})
		})

		Convey("When no cells may be missing", func() {
			cfg.MissingRate = 0
			for _, o := range Generate(cfg) {
				for _, v := range o.Metrics {
					So(v, ShouldNotBeNil)
				}
			}
		})
	})
}

func TestVerifyMinRank(t *testing.T) {
	Convey("Given leaderboard prefixes", t, func() {
		Convey("Then ties sharing the best rank pass", func() {
			So(VerifyMinRank([]Entry{
				{Rank: 1, Value: 200}, {Rank: 1, Value: 200}, {Rank: 3, Value: 150}, {Rank: 4, Value: 140},
			}), ShouldBeNil)
			So(VerifyMinRank(nil), ShouldBeNil)
		})

		Convey("Then dense ranking after a tie fails", func() {
			err := VerifyMinRank([]Entry{{Rank: 1, Value: 200}, {Rank: 1, Value: 200}, {Rank: 2, Value: 150}})
			So(errors.Is(err, ErrRankInvariant), ShouldBeTrue)
		})

		Convey("Then a split tie fails", func() {
			err := VerifyMinRank([]Entry{{Rank: 1, Value: 200}, {Rank: 2, Value: 200}})
			So(errors.Is(err, ErrRankInvariant), ShouldBeTrue)
		})

		Convey("Then ascending values fail", func() {
			err := VerifyMinRank([]Entry{{Rank: 1, Value: 100}, {Rank: 2, Value: 150}})
			So(errors.Is(err, ErrRankInvariant), ShouldBeTrue)
		})
	})
}

func TestClientRetries(t *testing.T) {
	Convey("Given a server that pushes back twice", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"status":"accepted","duplicate":false}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, time.Second)
		c.retry = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }

		Convey("Then the post succeeds on the third attempt", func() {
			dup, err := c.Post(context.Background(), &Observation{AthleteID: "A", Date: "2024-01-01"})
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(calls.Load(), ShouldEqual, int32(3))
		})
	})

	Convey("Given a server that rejects the body", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, time.Second)

		Convey("Then the client does not retry", func() {
			_, err := c.Post(context.Background(), &Observation{})
			So(errors.Is(err, ErrRejected), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, int32(1))
		})
	})
}

func TestRunAgainstService(t *testing.T) {
	Convey("Given a running service behind an HTTP server", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(1000))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a seed run completes", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:     srv.URL,
				Athletes:    15,
				Sessions:    3,
				Workers:     4,
				Timeout:     5 * time.Second,
				Settle:      5 * time.Second,
				MissingRate: 0.05,
				Resubmit:    5,
				Seed:        42,
			})

			Convey("Then everything was stored and every leaderboard verified", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 45)
				So(stats.Accepted, ShouldEqual, 45)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Verified, ShouldEqual, len(metricNames))
			})
		})
	})

	Convey("Given invalid options", t, func() {
		_, err := Run(context.Background(), &Config{BaseURL: "http://localhost:1"})
		So(errors.Is(err, ErrInvalidOptions), ShouldBeTrue)
	})
}
