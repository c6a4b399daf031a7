package seed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/perfconsole/pkg/logger"
)

// submitResult counts outcomes across submitters.
type submitResult struct {
	accepted   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// Submit posts observations from the given number of goroutines.
func Submit(ctx context.Context, c *Client, workers int, obs []Observation) (accepted, duplicates, failed int) {
	log := logger.Named("seed")
	var res submitResult

	ch := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ch {
				dup, err := c.Post(ctx, &obs[i])
				switch {
				case err != nil:
					res.failed.Add(1)
					log.Debug(ctx, "submit failed", logger.String("observation_id", obs[i].ObservationID), logger.Error(err))
				case dup:
					res.duplicates.Add(1)
				default:
					res.accepted.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for i := range obs {
			select {
			case <-ctx.Done():
				return
			case ch <- i:
			}
		}
	}()
	wg.Wait()

	return int(res.accepted.Load()), int(res.duplicates.Load()), int(res.failed.Load())
}
