package worker

import (
	"context"

	"github.com/okian/perfconsole/internal/domain/model"
	"github.com/okian/perfconsole/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithOnAppend registers a callback run after each successful append.
func WithOnAppend(fn func(inserted bool)) Option {
	return func(w *InMemoryWorker) {
		w.onAppend = fn
	}
}

// WithOnError registers a callback run when the store rejects an
// observation with an error.
func WithOnError(fn func(ctx context.Context, o model.Observation, err error)) Option {
	return func(w *InMemoryWorker) {
		w.onError = fn
	}
}
