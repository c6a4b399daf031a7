// Package worker drains the ingest queue into the observation store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/pkg/logger"
	"github.com/okian/perfconsole/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // per runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Appender persists one observation. It reports false when the store
// already holds the observation id.
type Appender interface {
	Append(ctx context.Context, o model.Observation) (bool, error)
}

// Queue defines how workers receive observations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Observation
}

// Worker processes observations until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker appends dequeued observations to the store.
type InMemoryWorker struct {
	queue    Queue
	store    Appender
	name     string
	onAppend func(inserted bool)
	onError  func(ctx context.Context, o model.Observation, err error)

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from q and writing to store.
func NewInMemoryWorker(q Queue, store Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		store:    store,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run processes observations until ctx is done, Shutdown is called, or
// the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	in := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case o, ok := <-in:
			if !ok {
				return
			}
			if err := w.process(ctx, o); err != nil {
				w.logger.Error(ctx, "error processing observation", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the current observation.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, o model.Observation) error { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	defer func() { metrics.RecordWorkerProcessingLatency(metrics.Since(start)) }()

	inserted, err := w.store.Append(ctx, o)
	if err != nil {
		metrics.RecordWorkerError()
		if w.onError != nil {
			w.onError(ctx, o, err)
		}
		return fmt.Errorf("append observation %s: %w", o.ID, err)
	}
	if inserted {
		metrics.RecordObservationIngested()
	} else {
		metrics.RecordObservationDuplicate()
		w.logger.Debug(ctx, "observation already stored", logger.String("observation_id", o.ID))
	}
	if w.onAppend != nil {
		w.onAppend(inserted)
	}
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers; < 1 picks a multiple of NumCPU.
// opts apply to every worker. The pool sets each worker's name and append
// callback itself.
func NewPool(workerCount int, q Queue, store Appender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append(slices.Clone(opts),
			WithName("worker-"+strconv.Itoa(i)),
			WithOnAppend(func(bool) { p.processed.Add(1) }),
		)
		p.workers[i] = NewInMemoryWorker(q, store, wopts...)
	}
	return p
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed counts observations the pool has handed to the store.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue so workers drain what is buffered, then waits
// for them up to the context deadline or poolShutdownTimeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-waitCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not stop: %w", timedOut, waitCtx.Err())
	}
	return nil
}
