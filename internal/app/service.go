// Package service wires the observation store, the ingest pipeline and the
// statistics engine behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/okian/perfconsole/internal/adapters/csvsource"
	"github.com/okian/perfconsole/internal/adapters/mq/queue"
	"github.com/okian/perfconsole/internal/adapters/mq/worker"
	"github.com/okian/perfconsole/internal/adapters/repository"
	"github.com/okian/perfconsole/internal/domain/dedupe"
	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/pkg/logger"
	"github.com/okian/perfconsole/pkg/metrics"
)

const (
	defaultQueueSize   = 10_000
	defaultDedupeSize  = 50_000
	defaultTrendWindow = 5
	defaultMaxLimit    = 100
)

// Service implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	trendWindow int
	maxLimit    int
	storeOpts   []repository.Option
	dataFile    string

	started bool
	logger  logger.Logger
}

// New constructs a Service; nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		trendWindow: defaultTrendWindow,
		maxLimit:    defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, loads the data file if configured and starts the
// ingest workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		store, err := repository.Open(ctx, s.storeOpts...)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	if s.dataFile != "" {
		s.loadDataFile(ctx)
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store, worker.WithOnError(s.forget))
	// Workers outlive the start context; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// loadDataFile seeds the store from CSV. A file that cannot be read leaves
// the store as it was and only logs a warning.
func (s *Service) loadDataFile(ctx context.Context) {
	snap, issues, err := csvsource.DecodeFile(s.dataFile)
	if err != nil {
		s.logger.Warn(ctx, "data file unreadable, starting without it",
			logger.String("path", s.dataFile), logger.Error(err))
		return
	}
	for _, issue := range issues {
		if errors.Is(issue, model.ErrInvalidMetricValue) {
			metrics.RecordInvalidMetricValue(issue.Column)
		}
		s.logger.Warn(ctx, "data file issue", logger.String("path", s.dataFile), logger.Error(issue))
	}

	var loaded int
	for _, o := range snap.Observations() {
		inserted, err := s.store.Append(ctx, o)
		if err != nil {
			s.logger.Warn(ctx, "skipping data file row", logger.String("observation_id", o.ID), logger.Error(err))
			continue
		}
		s.deduper.SeenAndRecord(ctx, o.ID)
		if inserted {
			loaded++
			metrics.RecordObservationIngested()
		}
	}
	s.logger.Info(ctx, "data file loaded",
		logger.String("path", s.dataFile),
		logger.Int("rows", snap.Len()),
		logger.Int("inserted", loaded),
		logger.Int("issues", len(issues)),
	)
}

// Stop drains the queue and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping service")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	s.started = false
	s.logger.Info(ctx, "service stopped")
	return errors.Join(errs...)
}

// IngestResult reports what happened to a submitted observation.
type IngestResult struct {
	ObservationID string
	Duplicate     bool
}

// Ingest validates o and queues it for storage. Observations without an id
// get one derived from their content. A full queue returns ErrBackpressure
// and forgets the id so the client can retry.
func (s *Service) Ingest(ctx context.Context, o model.Observation) (IngestResult, error) { //nolint:gocritic // hugeParam: queued by value
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return IngestResult{}, ErrNotStarted
	}

	if err := o.Validate(); err != nil {
		metrics.RecordObservationRejected("invalid")
		return IngestResult{}, err
	}
	if o.ID == "" {
		o.ID = model.ObservationID(o)
	}
	res := IngestResult{ObservationID: o.ID}

	if s.deduper.SeenAndRecord(ctx, o.ID) {
		metrics.RecordObservationDuplicate()
		s.logger.Debug(ctx, "duplicate observation", logger.String("observation_id", o.ID))
		res.Duplicate = true
		return res, nil
	}
	if err := s.queue.Enqueue(ctx, o); err != nil {
		s.deduper.Unrecord(ctx, o.ID)
		metrics.RecordObservationRejected("queue")
		if errors.Is(err, queue.ErrFull) {
			return IngestResult{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return IngestResult{}, fmt.Errorf("enqueue: %w", err)
	}
	return res, nil
}

// forget drops the dedupe mark of an observation the store failed to
// write, so a retry is stored instead of answered as a duplicate.
func (s *Service) forget(ctx context.Context, o model.Observation, err error) { //nolint:gocritic // hugeParam: matches the worker callback
	s.deduper.Unrecord(ctx, o.ID)
	s.logger.Warn(ctx, "store rejected observation; retry allowed",
		logger.String("observation_id", o.ID), logger.Error(err))
}

// GetStats returns service statistics for /stats.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]any{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
		"trend_window": s.trendWindow,
	}
	if !s.started {
		return out
	}
	out["queue_length"] = s.queue.Len(ctx)
	out["processed"] = s.pool.Processed()
	out["dedupe_entries"] = s.deduper.Size()
	if n, err := s.store.Count(ctx); err == nil {
		out["observations"] = n
	} else {
		s.logger.Warn(ctx, "count observations failed", logger.Error(err))
	}
	return out
}
