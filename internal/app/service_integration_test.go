package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	service "github.com/okian/perfconsole/internal/app"
	"github.com/okian/perfconsole/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const rosterCSV = `Player,Position,Date,Max_Speed,Vertical,Bench,Squat,Height,Weight,Body_Fat,Wingspan,Image_URL
Jordan Reed,WR,2024-01-05,21.4,34,225,,73,195,8.5,76,https://img.example/jr.png
Jordan Reed,WR,2024-01-12,21.9,35,235,405,73,197,,76,
Sam Ortiz,LB,2024-01-05,19.8,30,heavy,455,74,230,12,78,
`

func TestServiceIntegration(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sqlite-backed service seeded from a CSV roster", t, func() {
		dir := t.TempDir()
		dataFile := filepath.Join(dir, "roster.csv")
		So(os.WriteFile(dataFile, []byte(rosterCSV), 0o600), ShouldBeNil)
		dbPath := filepath.Join(dir, "perf.db")

		svc := service.New(
			service.WithStoreDriver("sqlite", dbPath),
			service.WithDataFile(dataFile),
			service.WithWorkerCount(2),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then the seeded rows are queryable", func() {
			p, err := svc.Profile(ctx, "Jordan Reed", service.DateRange{})
			So(err, ShouldBeNil)
			So(p.Weight.Or(0), ShouldEqual, 197)
			So(p.BodyFat.Valid(), ShouldBeFalse)
			So(p.ImageURL.Or(""), ShouldEqual, "https://img.example/jr.png")
			So(p.Score.Valid(), ShouldBeTrue)
		})

		Convey("Then the bad cell only drops that metric", func() {
			p, err := svc.Profile(ctx, "Sam Ortiz", service.DateRange{})
			So(err, ShouldBeNil)
			So(p.Metrics[2].Best.Valid(), ShouldBeFalse)
			So(p.Metrics[3].Best.Or(0), ShouldEqual, 455)
		})

		Convey("When a new observation is posted", func() {
			o := model.Observation{
				AthleteID: "Sam Ortiz",
				Position:  "LB",
				Date:      day(30),
				Values:    map[model.Metric]model.Optional[float64]{model.Bench: model.Some(315.0)},
			}
			res, err := svc.Ingest(ctx, o)
			So(err, ShouldBeNil)
			So(res.Duplicate, ShouldBeFalse)
			So(waitForObservations(ctx, svc, 4), ShouldBeTrue)

			Convey("Then new observations flow into the same store", func() {
				lb, err := svc.Leaderboard(ctx, model.Bench, "", 0, service.DateRange{})
				So(err, ShouldBeNil)
				So(lb.Entries[0].AthleteID, ShouldEqual, "Sam Ortiz")
				So(lb.Entries[0].Value, ShouldEqual, 315)
			})
		})

		Convey("When the service restarts on the same database", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			again := service.New(service.WithStoreDriver("sqlite", dbPath))
			So(again.Start(ctx), ShouldBeNil)
			defer func() { _ = again.Stop(ctx) }()

			Convey("Then stored observations survive", func() {
				So(again.GetStats(ctx)["observations"], ShouldEqual, 3)
			})
		})
	})

	Convey("Given a data file that cannot be read", t, func() {
		svc := service.New(service.WithDataFile(filepath.Join(t.TempDir(), "missing.csv")))

		Convey("Then the service starts empty instead of failing", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()
			roster, err := svc.Roster(ctx, service.DateRange{})
			So(err, ShouldBeNil)
			So(roster.Empty, ShouldBeTrue)
		})
	})
}
