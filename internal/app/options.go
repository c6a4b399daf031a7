package service

import (
	"github.com/okian/perfconsole/internal/adapters/repository"
	"github.com/okian/perfconsole/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the ingest queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the dedupe cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithTrendWindow sets how many recent observations a profile shows.
func WithTrendWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.trendWindow = n
		}
	}
}

// WithMaxLeaderboardLimit caps the leaderboard limit parameter.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithStoreDriver picks the store opened by Start.
func WithStoreDriver(driver, sqlitePath string) Option {
	return func(s *Service) {
		s.storeOpts = append(s.storeOpts,
			repository.WithDriver(driver),
			repository.WithSQLitePath(sqlitePath),
		)
	}
}

// WithStore injects an already open store; Start will not open one.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDataFile loads a CSV roster into the store on Start.
func WithDataFile(path string) Option {
	return func(s *Service) {
		s.dataFile = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
