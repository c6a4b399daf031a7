package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/pkg/metrics"
)

// MemoryStore keeps observations in an append-only slice. The snapshot is
// built lazily and reused until the next successful append.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []model.Observation
	ids    map[string]struct{}
	cached *model.Snapshot
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (s *MemoryStore) Append(_ context.Context, o model.Observation) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreAppendLatency(metrics.Since(start)) }()

	o, err := prepare(o)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if _, dup := s.ids[o.ID]; dup {
		return false, nil
	}
	s.ids[o.ID] = struct{}{}
	s.rows = append(s.rows, o)
	s.cached = nil
	return true, nil
}

func (s *MemoryStore) Snapshot(_ context.Context) (model.Snapshot, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return model.Snapshot{}, ErrClosed
	}
	if s.cached != nil {
		snap := *s.cached
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		snap := model.NewSnapshot(s.rows)
		s.cached = &snap
		metrics.RecordStoreSnapshotLatency(metrics.Since(start))
	}
	return *s.cached, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
