// Command seed fills a running service with synthetic observations and
// verifies the leaderboards it serves.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/okian/perfconsole/internal/seed"
	"github.com/okian/perfconsole/pkg/logger"
)

type cli struct {
	URL         string        `default:"http://localhost:9080" help:"Base URL of the service."`
	Athletes    int           `default:"200" help:"Number of athletes to generate."`
	Sessions    int           `default:"5" help:"Testing sessions per athlete."`
	Workers     int           `default:"8" help:"Concurrent submitters."`
	Timeout     time.Duration `default:"10s" help:"Per-request timeout."`
	Settle      time.Duration `default:"30s" help:"How long to wait for accepted observations to be stored."`
	MissingRate float64       `default:"0.05" name:"missing-rate" help:"Probability that a metric cell is left empty."`
	Resubmit    int           `default:"20" help:"Observations posted twice to check deduplication."`
	Seed        uint64        `default:"1" help:"Generator seed."`
	LogLevel    string        `default:"info" enum:"debug,info,warn,error" name:"log-level" help:"Log level."`
	LogFormat   string        `default:"text" enum:"text,json" name:"log-format" help:"Log format."`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("seed"),
		kong.Description("Submit synthetic observations and verify leaderboard ranking."),
		kong.UsageOnError(),
	)

	kctx.FatalIfErrorf(logger.Init(logger.WithFormat(c.LogFormat)))
	kctx.FatalIfErrorf(logger.SetLevelString(c.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err := seed.Run(ctx, &seed.Config{
		BaseURL:     c.URL,
		Athletes:    c.Athletes,
		Sessions:    c.Sessions,
		Workers:     c.Workers,
		Timeout:     c.Timeout,
		Settle:      c.Settle,
		MissingRate: c.MissingRate,
		Resubmit:    c.Resubmit,
		Seed:        c.Seed,
	})
	if err != nil {
		logger.Get().Error(ctx, "seed run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
