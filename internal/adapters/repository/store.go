// Package repository stores ingested observations and hands out
// immutable snapshots of them.
package repository

import (
	"context"

	"github.com/okian/perfconsole/internal/domain/model"
)

// Store provides append-only access to observations.
type Store interface {
	// Append stores o. It returns false, without error, when an observation
	// with the same id is already stored. An empty id is derived from the
	// observation's content.
	Append(ctx context.Context, o model.Observation) (bool, error)

	// Snapshot returns every stored observation as one immutable value.
	Snapshot(ctx context.Context) (model.Snapshot, error)

	// Count returns the number of stored observations.
	Count(ctx context.Context) (int, error)

	Close() error
}

// prepare validates o and fills in its id.
func prepare(o model.Observation) (model.Observation, error) {
	if err := o.Validate(); err != nil {
		return o, err
	}
	if o.ID == "" {
		o.ID = model.ObservationID(o)
	}
	return o, nil
}
