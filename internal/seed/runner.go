package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/okian/perfconsole/pkg/logger"
)

// settlePoll is the interval between /stats polls while waiting for the
// workers to store what was accepted.
const settlePoll = 100 * time.Millisecond

const defaultSettle = 10 * time.Second

// Run generates, submits and verifies one batch.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}
	log := logger.Named("seed")
	started := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	if err := client.Health(ctx); err != nil {
		return Stats{}, err
	}
	baseline, err := client.StoredObservations(ctx)
	if err != nil {
		return Stats{}, err
	}

	obs := Generate(cfg)
	stats := Stats{Generated: len(obs)}
	log.Info(ctx, "submitting observations",
		logger.Int("observations", len(obs)),
		logger.Int("athletes", cfg.Athletes),
		logger.Int("workers", cfg.Workers))

	stats.Accepted, stats.Duplicates, stats.Failed = Submit(ctx, client, cfg.Workers, obs)
	if err := resubmitDuplicates(ctx, client, obs, cfg.Resubmit); err != nil {
		return stats, err
	}
	if err := waitSettled(ctx, client, baseline+stats.Accepted, cfg.Settle); err != nil {
		return stats, err
	}

	for _, m := range metricNames {
		lb, err := client.Leaderboard(ctx, m, 0)
		if err != nil {
			return stats, err
		}
		if err := VerifyMinRank(lb.Entries); err != nil {
			return stats, fmt.Errorf("%s: %w", m, err)
		}
		stats.Verified++
		log.Debug(ctx, "leaderboard verified", logger.String("metric", m), logger.Int("entries", len(lb.Entries)))
	}

	stats.Duration = time.Since(started)
	log.Info(ctx, "seed run complete",
		logger.Int("generated", stats.Generated),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("leaderboards_verified", stats.Verified),
		logger.String("duration", stats.Duration.String()))
	return stats, nil
}

// resubmitDuplicates re-posts the first n observations; every one must come
// back as a duplicate.
func resubmitDuplicates(ctx context.Context, c *Client, obs []Observation, n int) error {
	if n > len(obs) {
		n = len(obs)
	}
	for i := 0; i < n; i++ {
		dup, err := c.Post(ctx, &obs[i])
		if err != nil {
			return err
		}
		if !dup {
			return fmt.Errorf("%w: %s", ErrNotIdempotent, obs[i].ObservationID)
		}
	}
	return nil
}

// waitSettled polls /stats until want observations are stored.
func waitSettled(ctx context.Context, c *Client, want int, limit time.Duration) error {
	bo := backoff.NewConstantBackOff(settlePoll)
	var got int
	op := func() error {
		n, err := c.StoredObservations(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		got = n
		if n < want {
			return fmt.Errorf("stored %d of %d", n, want)
		}
		return nil
	}
	if limit <= 0 {
		limit = defaultSettle
	}
	wait, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	if err := backoff.Retry(op, backoff.WithContext(bo, wait)); err != nil {
		return fmt.Errorf("%w: stored %d of %d", ErrNotSettled, got, want)
	}
	return nil
}
